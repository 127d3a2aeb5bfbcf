package derive

import (
	"time"

	"finreport/pkg/contracts/domain"
)

// SingleQuarter converts cumulative year-to-date figures into single-quarter
// figures. Rows must be sorted newest first with no missing quarters: each row
// has the next (older) row subtracted, except March rows which already hold a
// single quarter. The oldest row has nothing to subtract and becomes missing
// unless it is a March row. Text columns are dropped.
func SingleQuarter(t domain.Table) domain.Table {
	numeric := t.NumericOnly()
	out := domain.Table{Periods: t.Periods, Columns: make([]domain.Column, len(numeric.Columns))}

	for c, col := range numeric.Columns {
		cells := make([]domain.Cell, len(col.Cells))
		for i, cur := range col.Cells {
			if isFirstQuarter(t.Periods[i]) {
				cells[i] = cur
				continue
			}
			if i+1 >= len(col.Cells) {
				cells[i] = domain.Missing()
				continue
			}
			cells[i] = subtract(cur, col.Cells[i+1])
		}
		out.Columns[c] = domain.Column{Name: col.Name, Cells: cells}
	}
	return out
}

func isFirstQuarter(p time.Time) bool {
	return !p.IsZero() && p.Month() == time.March
}

func subtract(a, b domain.Cell) domain.Cell {
	x, ok := a.Float()
	if !ok {
		return domain.Missing()
	}
	y, ok := b.Float()
	if !ok {
		return domain.Missing()
	}
	return domain.Number(x - y)
}
