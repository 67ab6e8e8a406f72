package export

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	w, err := sink.Create("deck.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "a,b\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := sink.Open("deck.csv")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestFileSinkStaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deck.csv"), sink.Location("../../deck.csv"))
}

func TestMemorySinkMissing(t *testing.T) {
	_, err := NewMemorySink().Open("nope.csv")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMemorySinkVisibleOnClose(t *testing.T) {
	sink := NewMemorySink()
	w, err := sink.Create("deck.csv")
	require.NoError(t, err)
	_, err = io.WriteString(w, "x")
	require.NoError(t, err)
	assert.Nil(t, sink.Bytes("deck.csv"))

	require.NoError(t, w.Close())
	assert.Equal(t, []byte("x"), sink.Bytes("deck.csv"))
}
