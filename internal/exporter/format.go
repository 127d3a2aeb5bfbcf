package exporter

import (
	"fmt"
	"math"
	"time"

	"finreport/pkg/contracts/domain"
)

// Placeholder is printed for missing values
const Placeholder = "-"

// FormatNumber abbreviates v with the largest magnitude unit it exceeds
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return Placeholder
	}
	abs := math.Abs(v)
	switch {
	case abs > 1e12:
		return fmt.Sprintf("%.2f万亿", v/1e12)
	case abs > 1e8:
		return fmt.Sprintf("%.2f亿", v/1e8)
	case abs > 1e4:
		return fmt.Sprintf("%.1f万", v/1e4)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// FormatPeriod prints a reporting period as YYYY-MM-DD
func FormatPeriod(p time.Time) string {
	if p.IsZero() {
		return Placeholder
	}
	return p.Format(domain.PeriodLayout)
}

// FormatCell renders one cell. Text passes through unchanged.
func FormatCell(c domain.Cell) string {
	if c.IsMissing() {
		return Placeholder
	}
	if c.IsText() {
		return c.Text
	}
	v, _ := c.Float()
	return FormatNumber(v)
}

// DisplayRows lays t out transposed: a header row of periods, then one row per column
func DisplayRows(t domain.Table) [][]string {
	rows := make([][]string, 0, len(t.Columns)+1)

	header := make([]string, 0, t.Len()+1)
	header = append(header, domain.PeriodColumn)
	for _, p := range t.Periods {
		header = append(header, FormatPeriod(p))
	}
	rows = append(rows, header)

	for _, col := range t.Columns {
		row := make([]string, 0, len(col.Cells)+1)
		row = append(row, col.Name)
		for _, c := range col.Cells {
			row = append(row, FormatCell(c))
		}
		rows = append(rows, row)
	}
	return rows
}
