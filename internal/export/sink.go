package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink stores named export artifacts.
type Sink interface {
	Create(name string) (io.WriteCloser, error)
	Open(name string) (io.ReadCloser, error)
	Location(name string) string
}

// FileSink writes artifacts into a directory on disk, replacing any
// existing file of the same name.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

func (s *FileSink) Location(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

func (s *FileSink) Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(s.Location(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return f, nil
}

func (s *FileSink) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(s.Location(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

// MemorySink keeps artifacts in memory. Contents become visible on Close.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) Location(name string) string {
	return "memory://" + name
}

func (s *MemorySink) Create(name string) (io.WriteCloser, error) {
	return &memoryFile{sink: s, name: name}, nil
}

func (s *MemorySink) Open(name string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.files[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("failed to open %s: %w", name, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Bytes returns a copy of the named artifact, or nil if none was written.
func (s *MemorySink) Bytes(name string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}

type memoryFile struct {
	bytes.Buffer
	sink *MemorySink
	name string
}

func (f *memoryFile) Close() error {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	f.sink.files[f.name] = append([]byte(nil), f.Bytes()...)
	return nil
}
