package pipeline

import (
	"strings"
	"time"

	"finreport/internal/mapping"
	"finreport/pkg/contracts/domain"
)

// DefaultYearSpan is how many years before the latest one the default filter shows
const DefaultYearSpan = 5

// FilterOptions selects what part of a Result is presented. Zero values disable a filter.
type FilterOptions struct {
	FromYear int `json:"from_year,omitempty"`
	ToYear   int `json:"to_year,omitempty"`
	// Quarters keeps rows whose period falls in these quarters (1-4)
	Quarters []int `json:"quarters,omitempty"`
	// KeepLatest puts the newest row back when the other filters removed it
	KeepLatest bool `json:"keep_latest,omitempty"`
	// DropEmptyColumns removes columns with no value in the remaining rows
	DropEmptyColumns bool `json:"drop_empty_columns,omitempty"`
	// MappedOnly removes columns that are neither in the mapping workbook nor derived.
	// The cross table is never reduced.
	MappedOnly bool `json:"mapped_only,omitempty"`
}

// YearRange returns the first and last year among the statement periods
func YearRange(r *Result) (minYear, maxYear int) {
	for _, name := range []domain.ReportName{domain.ReportIncomeByReport, domain.ReportCashFlowByReport, domain.ReportBalanceByReport} {
		t, _ := r.Report(name)
		for _, p := range t.Periods {
			if p.IsZero() {
				continue
			}
			y := p.Year()
			if minYear == 0 || y < minYear {
				minYear = y
			}
			if y > maxYear {
				maxYear = y
			}
		}
	}
	return minYear, maxYear
}

// DefaultFilterOptions shows the last DefaultYearSpan years of every quarter,
// keeps the newest row, and hides empty and unmapped columns.
func DefaultFilterOptions(r *Result) FilterOptions {
	_, maxYear := YearRange(r)
	opts := FilterOptions{KeepLatest: true, DropEmptyColumns: true, MappedOnly: true}
	if maxYear > 0 {
		opts.FromYear = maxYear - DefaultYearSpan
		opts.ToYear = maxYear
	}
	return opts
}

// Filter applies opts to every table of r and returns a new Result
func Filter(r *Result, opts FilterOptions, book *mapping.Book) *Result {
	quarters := make(map[int]bool, len(opts.Quarters))
	for _, q := range opts.Quarters {
		quarters[q] = true
	}

	keepRow := func(_ int, p time.Time) bool {
		if opts.FromYear > 0 && (p.IsZero() || p.Year() < opts.FromYear) {
			return false
		}
		if opts.ToYear > 0 && (p.IsZero() || p.Year() > opts.ToYear) {
			return false
		}
		if len(quarters) > 0 && (p.IsZero() || !quarters[quarterOf(p)]) {
			return false
		}
		return true
	}

	return r.With(func(name domain.ReportName, t domain.Table) domain.Table {
		filtered := t.FilterRows(keepRow)

		if opts.KeepLatest && t.Len() > 0 && (filtered.Empty() || !filtered.Periods[0].Equal(t.Periods[0])) {
			filtered = t.FilterRows(func(i int, p time.Time) bool {
				return i == 0 || keepRow(i, p)
			})
		}

		if opts.DropEmptyColumns {
			filtered = filtered.SelectColumns(func(c domain.Column) bool { return !c.AllMissing() })
		}

		if opts.MappedOnly {
			if kind, ok := name.Statement(); ok {
				if sheet, ok := book.Sheet(kind); ok {
					filtered = filtered.SelectColumns(func(c domain.Column) bool {
						return IsDerived(c.Name) || sheet.Contains(c.Name)
					})
				}
			}
		}
		return filtered
	})
}

// IsDerived reports whether a column was computed by the pipeline rather than
// delivered by a provider
func IsDerived(name string) bool {
	return strings.HasPrefix(name, "*") || strings.HasSuffix(name, "[%]") || name == domain.InterestBearingDebt
}

func quarterOf(p time.Time) int {
	return (int(p.Month())-1)/3 + 1
}
