// Package derive computes single-quarter, year-over-year and ratio tables from
// canonical statements. Every function returns a new table; inputs are never
// modified.
package derive

import (
	"finreport/pkg/contracts/domain"
)

// rowwise applies f to the named columns row by row. A row where any operand
// is missing or text yields missing, as does f returning false. The caller
// checks that all columns exist.
func rowwise(t domain.Table, f func(v []float64) (float64, bool), names ...string) []domain.Cell {
	cols := make([][]domain.Cell, len(names))
	for i, name := range names {
		cols[i] = t.Cells(name)
	}

	out := make([]domain.Cell, t.Len())
	vals := make([]float64, len(names))
	for r := range out {
		out[r] = domain.Missing()
		ok := true
		for i := range cols {
			if vals[i], ok = cols[i][r].Float(); !ok {
				break
			}
		}
		if !ok {
			continue
		}
		if v, ok := f(vals); ok {
			out[r] = domain.Number(v)
		}
	}
	return out
}

// difference returns names[0] minus every other named column
func difference(t domain.Table, names ...string) []domain.Cell {
	return rowwise(t, func(v []float64) (float64, bool) {
		acc := v[0]
		for _, x := range v[1:] {
			acc -= x
		}
		return acc, true
	}, names...)
}

// sum adds the named columns
func sum(t domain.Table, names ...string) []domain.Cell {
	return rowwise(t, func(v []float64) (float64, bool) {
		acc := 0.0
		for _, x := range v {
			acc += x
		}
		return acc, true
	}, names...)
}

// percentOf returns numerator / denominator * 100, missing where the denominator is zero
func percentOf(t domain.Table, numerator, denominator string) []domain.Cell {
	return rowwise(t, func(v []float64) (float64, bool) {
		if v[1] == 0 {
			return 0, false
		}
		return v[0] / v[1] * 100, true
	}, numerator, denominator)
}

// sumPercentOf returns the sum of numerators / denominator * 100
func sumPercentOf(t domain.Table, denominator string, numerators ...string) []domain.Cell {
	names := append([]string{denominator}, numerators...)
	return rowwise(t, func(v []float64) (float64, bool) {
		if v[0] == 0 {
			return 0, false
		}
		acc := 0.0
		for _, x := range v[1:] {
			acc += x
		}
		return acc / v[0] * 100, true
	}, names...)
}

// zeroFill replaces missing cells with 0
func zeroFill(cells []domain.Cell) []domain.Cell {
	out := make([]domain.Cell, len(cells))
	for i, c := range cells {
		if c.IsMissing() {
			out[i] = domain.Number(0)
		} else {
			out[i] = c
		}
	}
	return out
}

// present filters names down to the columns t has
func present(t domain.Table, names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
