package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"finreport/internal/pipeline"
)

// maxSheetName is Excel's limit on sheet name length
const maxSheetName = 31

// WriteWorkbook writes each report to its own sheet, named by the report title.
// Cells hold the same text as the CSV export.
func WriteWorkbook(out io.Writer, reports []pipeline.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(reports) == 0 {
		return fmt.Errorf("no reports to write")
	}

	for i, report := range reports {
		sheet := sheetName(report)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		for r, row := range DisplayRows(report.Table) {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
			}
		}
	}

	f.SetActiveSheet(0)
	_, err := f.WriteTo(out)
	return err
}

func sheetName(report pipeline.Report) string {
	name := report.Title
	if name == "" {
		name = string(report.Name)
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}
