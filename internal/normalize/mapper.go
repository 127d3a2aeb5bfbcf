package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "finreport/internal/errors"
	"finreport/internal/mapping"
	"finreport/pkg/contracts/domain"
)

// RawColumn is a renamed column whose values have not been coerced yet
type RawColumn struct {
	Name   string
	Values []any
}

// Mapped is a statement after column mapping: canonical names, canonical
// order, parsed periods and untouched cell values.
type Mapped struct {
	Provider domain.Provider
	Kind     domain.StatementKind
	Periods  []time.Time
	Columns  []RawColumn
}

// Len returns the number of rows
func (m Mapped) Len() int {
	return len(m.Periods)
}

// ColumnNames returns the column names in order
func (m Mapped) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

var periodLayouts = []string{
	domain.PeriodLayout,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"20060102",
	time.RFC3339,
}

// ParsePeriod converts a provider's Reporting Period value to a date. Values
// that cannot be read return the zero time.
func ParsePeriod(v any) time.Time {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s = strings.TrimSpace(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case json.Number:
		s = x.String()
	default:
		return time.Time{}
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MapColumns renames raw columns to canonical names and reorders them: mapped
// columns in the sheet's order first, unmapped columns after in their original
// order. The Reporting Period column is pulled out and parsed into Periods.
//
// An empty raw table maps to an empty result. A non-empty one without a
// Reporting Period column fails with ErrMissingPeriod.
func MapColumns(raw domain.RawTable, sheet mapping.Sheet, provider domain.Provider) (Mapped, error) {
	out := Mapped{Provider: provider, Kind: sheet.Kind}

	lookup, err := sheet.Lookup(provider)
	if err != nil {
		return out, err
	}
	if raw.Empty() {
		return out, nil
	}

	names := make([]string, len(raw.Columns))
	for j, c := range raw.Columns {
		if canonical, ok := lookup[c]; ok {
			names[j] = canonical
		} else {
			names[j] = c
		}
	}

	// first column wins for every canonical name
	first := make(map[string]int, len(names))
	for j, name := range names {
		if prev, dup := first[name]; dup {
			slog.Warn("Duplicate column after mapping, keeping first",
				slog.String("provider", provider.String()),
				slog.String("statement", string(sheet.Kind)),
				slog.String("column", name),
				slog.String("kept", raw.Columns[prev]),
				slog.String("dropped", raw.Columns[j]))
			continue
		}
		first[name] = j
	}

	periodIdx, ok := first[domain.PeriodColumn]
	if !ok {
		return out, fmt.Errorf("%w: %s %s statement has columns %v",
			apperrors.ErrMissingPeriod, provider, sheet.Kind, raw.Columns)
	}

	out.Periods = make([]time.Time, len(raw.Rows))
	for i := range raw.Rows {
		out.Periods[i] = ParsePeriod(raw.Value(i, periodIdx))
	}

	order := make([]int, 0, len(first))
	placed := make(map[string]bool, len(first))
	for _, item := range sheet.Items() {
		if j, ok := first[item]; ok && item != domain.PeriodColumn {
			order = append(order, j)
			placed[item] = true
		}
	}
	for j, name := range names {
		if first[name] != j || placed[name] || name == domain.PeriodColumn {
			continue
		}
		order = append(order, j)
	}

	out.Columns = make([]RawColumn, len(order))
	for c, j := range order {
		values := make([]any, len(raw.Rows))
		for i := range raw.Rows {
			values[i] = raw.Value(i, j)
		}
		out.Columns[c] = RawColumn{Name: names[j], Values: values}
	}
	return out, nil
}
