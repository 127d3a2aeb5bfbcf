package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// PeriodColumn is the canonical name of the Reporting Period column
const PeriodColumn = "报告期"

// PeriodLayout is the display layout of a Reporting Period
const PeriodLayout = "2006-01-02"

// Column is a named line item with one cell per table row
type Column struct {
	Name  string
	Cells []Cell
}

// Numeric reports whether every non-missing cell holds a number
func (c Column) Numeric() bool {
	for _, cell := range c.Cells {
		if cell.IsText() {
			return false
		}
	}
	return true
}

// AllMissing reports whether the column carries no value at all
func (c Column) AllMissing() bool {
	for _, cell := range c.Cells {
		if !cell.IsMissing() {
			return false
		}
	}
	return true
}

// Table is a canonical statement table keyed by Reporting Period.
//
// Periods holds one entry per row; a zero time marks a period that could not be
// parsed. Columns never include the period column itself: it is implied and
// rendered first. Cell slices are never written after a table is built, so the
// methods below share them freely and always return a new Table.
type Table struct {
	Periods []time.Time
	Columns []Column
}

// NewTable builds a table from periods and columns, validating row counts
func NewTable(periods []time.Time, columns ...Column) (Table, error) {
	for _, col := range columns {
		if len(col.Cells) != len(periods) {
			return Table{}, fmt.Errorf("column %s has %d cells, want %d", col.Name, len(col.Cells), len(periods))
		}
	}
	return Table{Periods: periods, Columns: columns}, nil
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Periods)
}

// Empty reports whether the table has no rows
func (t Table) Empty() bool {
	return len(t.Periods) == 0
}

// Index returns the position of the named column or -1
func (t Table) Index(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether all named columns are present
func (t Table) Has(names ...string) bool {
	for _, name := range names {
		if t.Index(name) < 0 {
			return false
		}
	}
	return true
}

// Column returns the named column
func (t Table) Column(name string) (Column, bool) {
	if i := t.Index(name); i >= 0 {
		return t.Columns[i], true
	}
	return Column{}, false
}

// Cells returns the cells of the named column, or nil when absent
func (t Table) Cells(name string) []Cell {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	return col.Cells
}

// ColumnNames returns the column names in order, without the period column
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// WithColumn returns a table where the named column holds cells. An existing
// column is replaced in place, a new one is appended.
func (t Table) WithColumn(name string, cells []Cell) Table {
	cols := make([]Column, len(t.Columns), len(t.Columns)+1)
	copy(cols, t.Columns)
	if i := t.Index(name); i >= 0 {
		cols[i] = Column{Name: name, Cells: cells}
	} else {
		cols = append(cols, Column{Name: name, Cells: cells})
	}
	return Table{Periods: t.Periods, Columns: cols}
}

// Select returns the named columns that are present, in the given order
func (t Table) Select(names ...string) Table {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		if col, ok := t.Column(name); ok {
			cols = append(cols, col)
		}
	}
	return Table{Periods: t.Periods, Columns: cols}
}

// SelectColumns keeps the columns accepted by keep, preserving order
func (t Table) SelectColumns(keep func(Column) bool) Table {
	cols := make([]Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		if keep(col) {
			cols = append(cols, col)
		}
	}
	return Table{Periods: t.Periods, Columns: cols}
}

// NumericOnly drops columns holding pass-through text
func (t Table) NumericOnly() Table {
	return t.SelectColumns(Column.Numeric)
}

// MoveAfterPeriod moves the named columns, when present, to the front in the
// given order. Values are untouched.
func (t Table) MoveAfterPeriod(names ...string) Table {
	front := make([]Column, 0, len(names))
	moved := make(map[string]bool, len(names))
	for _, name := range names {
		if col, ok := t.Column(name); ok && !moved[name] {
			front = append(front, col)
			moved[name] = true
		}
	}
	cols := front
	for _, col := range t.Columns {
		if !moved[col.Name] {
			cols = append(cols, col)
		}
	}
	return Table{Periods: t.Periods, Columns: cols}
}

// FilterRows keeps the rows accepted by keep
func (t Table) FilterRows(keep func(i int, period time.Time) bool) Table {
	var idx []int
	for i, p := range t.Periods {
		if keep(i, p) {
			idx = append(idx, i)
		}
	}
	return t.pick(idx)
}

// SortByPeriodDesc orders rows newest first. Missing periods sort last.
func (t Table) SortByPeriodDesc() Table {
	idx := make([]int, len(t.Periods))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Periods[idx[a]].After(t.Periods[idx[b]])
	})
	return t.pick(idx)
}

// Row returns the cells of row i keyed by column name
func (t Table) Row(i int) map[string]Cell {
	row := make(map[string]Cell, len(t.Columns))
	for _, col := range t.Columns {
		row[col.Name] = col.Cells[i]
	}
	return row
}

func (t Table) pick(idx []int) Table {
	periods := make([]time.Time, len(idx))
	for j, i := range idx {
		periods[j] = t.Periods[i]
	}
	cols := make([]Column, len(t.Columns))
	for c, col := range t.Columns {
		cells := make([]Cell, len(idx))
		for j, i := range idx {
			cells[j] = col.Cells[i]
		}
		cols[c] = Column{Name: col.Name, Cells: cells}
	}
	return Table{Periods: periods, Columns: cols}
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON renders the table row-wise with the period column first
func (t Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Columns: append([]string{PeriodColumn}, t.ColumnNames()...),
		Rows:    make([][]any, len(t.Periods)),
	}
	for i, p := range t.Periods {
		row := make([]any, 0, len(t.Columns)+1)
		if p.IsZero() {
			row = append(row, nil)
		} else {
			row = append(row, p.Format(PeriodLayout))
		}
		for _, col := range t.Columns {
			row = append(row, col.Cells[i])
		}
		out.Rows[i] = row
	}
	return json.Marshal(out)
}
