package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"econdash/internal/config"
	"econdash/internal/view"
)

// Exporter renders view tables in export formats
type Exporter struct {
	dir    string
	path   func(filename string) string
	csv    *CSVWriter
	bom    bool
	logger *slog.Logger
}

// New creates an exporter saving files under dir
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		dir: dir,
		path: func(filename string) string {
			return filepath.Join(dir, filepath.Base(filename))
		},
		csv:    NewCSVWriter(),
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// FromConfig creates an exporter saving files in the configured exports
// directory
func FromConfig(cfg *config.Config, logger *slog.Logger) *Exporter {
	e := New(cfg.GetExportsDir(), logger)
	e.path = cfg.ExportPath
	return e
}

// WithBOM makes CSV output start with a UTF-8 byte order mark
func (e *Exporter) WithBOM(enabled bool) *Exporter {
	e.bom = enabled
	return e
}

// Filename returns the download name of a table in format f
func Filename(t view.Table, f Format) string {
	name := t.Name
	if name == "" {
		name = "export"
	}
	return name + "." + string(f)
}

// Records converts a table to CSV rows. A nil cell becomes "0".
func Records(t view.Table) [][]string {
	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make([]string, 0, len(row.Values)+1)
		rec = append(rec, row.Label)
		for _, v := range row.Values {
			rec = append(rec, formatCell(v))
		}
		records = append(records, rec)
	}
	return records
}

// Write renders t to out
func (e *Exporter) Write(out io.Writer, t view.Table, f Format) error {
	switch f {
	case FormatCSV:
		return e.csv.WriteCSV(out, WriteOptions{
			Headers:   t.Columns,
			Records:   Records(t),
			BOMPrefix: e.bom,
		})
	case FormatXLSX:
		return writeXLSX(out, t)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// Save writes t into the exports directory and returns the file path
func (e *Exporter) Save(t view.Table, f Format) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := e.path(Filename(t, f))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.Write(file, t, f); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	e.logger.Info("Export written",
		slog.String("file_path", path),
		slog.String("format", string(f)),
		slog.Int("record_count", len(t.Rows)))
	return path, nil
}
