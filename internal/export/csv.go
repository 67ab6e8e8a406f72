// Package export writes generated rows to a single CSV artifact.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"go.uber.org/zap"

	"ankigen/internal/models"
	"ankigen/internal/notify"
)

const (
	// DefaultFilename is the fixed name of the export artifact.
	DefaultFilename = "anki_deck.csv"

	// MinRows is the smallest table that is written out.
	MinRows = 2
)

// Artifact describes a written export.
type Artifact struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Rows     int    `json:"rows"`
}

type Exporter struct {
	sink     Sink
	filename string
	logger   *zap.Logger
}

func NewExporter(sink Sink, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{sink: sink, filename: DefaultFilename, logger: logger}
}

func (e *Exporter) Filename() string {
	return e.filename
}

// Export writes rows with a header line, overwriting any earlier export.
// Tables with fewer than MinRows rows are not written; a warning notice is
// issued and a nil artifact returned.
func (e *Exporter) Export(rows []models.Row, notifier notify.Notifier) (*Artifact, error) {
	if notifier == nil {
		notifier = notify.Discard
	}

	if len(rows) < MinRows {
		notifier.Warning(fmt.Sprintf("The dataframe has fewer than %d rows. Nothing to export.", MinRows))
		return nil, nil
	}

	notifier.Info("Exporting...")

	w, err := e.sink.Create(e.filename)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}

	if err := writeRows(w, rows); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("export failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}

	artifact := &Artifact{
		Name:     e.filename,
		Location: e.sink.Location(e.filename),
		Rows:     len(rows),
	}
	e.logger.Info("exported deck", zap.String("location", artifact.Location), zap.Int("rows", artifact.Rows))
	return artifact, nil
}

func writeRows(w io.Writer, rows []models.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.RowHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
