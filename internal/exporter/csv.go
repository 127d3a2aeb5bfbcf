package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"finreport/internal/pipeline"
	"finreport/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes display tables as CSV files under a base directory
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at dir
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir, logger: slog.Default().With(slog.String("component", "exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteTable writes t transposed for display, prefixed with a UTF-8 BOM
func (w *CSVWriter) WriteTable(out io.Writer, t domain.Table) error {
	return writeCSV(out, WriteOptions{Records: DisplayRows(t), BOMPrefix: true})
}

// WriteReport writes one report to {dir}/{code}/{report}.csv and returns the path
func (w *CSVWriter) WriteReport(code string, report pipeline.Report) (string, error) {
	path := w.ReportPath(code, report.Name)

	w.logger.Info("Writing CSV file",
		slog.String("full_path", path),
		slog.String("report", string(report.Name)),
		slog.Int("record_count", len(report.Table.Columns)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}

	if err := w.WriteTable(file, report.Table); err != nil {
		file.Close()
		return "", err
	}
	return path, file.Close()
}

// WriteReports writes every report of a result and returns the file paths in display order
func (w *CSVWriter) WriteReports(res *pipeline.Result) ([]string, error) {
	var paths []string
	for _, report := range res.Reports() {
		path, err := w.WriteReport(res.Code, report)
		if err != nil {
			return paths, fmt.Errorf("report %s: %w", report.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ReportPath returns where WriteReport puts a report
func (w *CSVWriter) ReportPath(code string, name domain.ReportName) string {
	return filepath.Join(w.dir, code, string(name)+".csv")
}

func writeCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
