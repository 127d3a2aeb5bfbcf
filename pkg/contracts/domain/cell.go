package domain

import (
	"encoding/json"
	"math"
)

// CellKind tells how a Cell should be read
type CellKind uint8

const (
	CellMissing CellKind = iota
	CellNumber
	CellText
)

// Cell is a single statement value: a number, an explicit missing marker, or
// provider text that could not be coerced to a number.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// Missing returns the explicit missing marker
func Missing() Cell {
	return Cell{Kind: CellMissing}
}

// Number wraps v. NaN and infinities become missing.
func Number(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return Cell{Kind: CellNumber, Num: v}
}

// Text wraps a value that passed through normalization unparsed
func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// Float returns the numeric value and whether the cell holds one.
// Text cells are not numbers.
func (c Cell) Float() (float64, bool) {
	if c.Kind != CellNumber {
		return 0, false
	}
	return c.Num, true
}

// IsMissing reports whether the cell is the missing marker
func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// IsText reports whether the cell holds pass-through text
func (c Cell) IsText() bool {
	return c.Kind == CellText
}

// Equal compares kinds and payloads exactly
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellNumber:
		return c.Num == o.Num
	case CellText:
		return c.Text == o.Text
	}
	return true
}

// MarshalJSON renders numbers as JSON numbers, missing as null and text as strings
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellNumber:
		return json.Marshal(c.Num)
	case CellText:
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}

// MissingCells returns n missing cells
func MissingCells(n int) []Cell {
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = Missing()
	}
	return cells
}
