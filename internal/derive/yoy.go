package derive

import (
	"math"

	"finreport/pkg/contracts/domain"
)

// QuarterlyOffset compares a quarterly row with the same quarter one year earlier
const QuarterlyOffset = 4

// YoY returns the growth of each value against the value offset positions
// later (older), in percent: (cur - prev) / |prev| * 100. A missing operand,
// a zero previous value or running off the end of the series yields missing.
func YoY(cells []domain.Cell, offset int) []domain.Cell {
	out := make([]domain.Cell, len(cells))
	for i, c := range cells {
		out[i] = domain.Missing()
		if offset <= 0 || i+offset >= len(cells) {
			continue
		}
		cur, ok := c.Float()
		if !ok {
			continue
		}
		prev, ok := cells[i+offset].Float()
		if !ok || prev == 0 {
			continue
		}
		out[i] = domain.Number((cur - prev) / math.Abs(prev) * 100)
	}
	return out
}

// YoYTable applies YoY to every numeric column of t. Text columns are dropped;
// periods are kept as they are.
func YoYTable(t domain.Table, offset int) domain.Table {
	numeric := t.NumericOnly()
	out := domain.Table{Periods: t.Periods, Columns: make([]domain.Column, len(numeric.Columns))}
	for c, col := range numeric.Columns {
		out.Columns[c] = domain.Column{Name: col.Name, Cells: YoY(col.Cells, offset)}
	}
	return out
}
