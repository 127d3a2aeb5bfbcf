package domain

import (
	"encoding/json"
	"fmt"
)

// RawTable is a statement exactly as a provider returned it: native column
// names and untyped cells (float64, string, bool, nil, ...).
type RawTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"data"`
}

// Empty reports whether the table has no rows
func (r RawTable) Empty() bool {
	return len(r.Rows) == 0
}

// Index returns the position of the named column or -1
func (r RawTable) Index(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i, column j, or nil for short rows
func (r RawTable) Value(i, j int) any {
	row := r.Rows[i]
	if j >= len(row) {
		return nil
	}
	return row[j]
}

// UnmarshalJSON accepts pandas' split orientation ({"columns", "index", "data"})
func (r *RawTable) UnmarshalJSON(b []byte) error {
	var split struct {
		Columns []string `json:"columns"`
		Data    [][]any  `json:"data"`
	}
	if err := json.Unmarshal(b, &split); err != nil {
		return err
	}
	for i, row := range split.Data {
		if len(row) > len(split.Columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(split.Columns))
		}
	}
	r.Columns = split.Columns
	r.Rows = split.Data
	return nil
}
