package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"finreport/internal/mapping"
	"finreport/pkg/contracts/domain"
)

// EastMoneyYoYSuffix marks East Money's precomputed growth columns
const EastMoneyYoYSuffix = "YOY"

// Stats reports cells that could not be coerced and were passed through as text
type Stats struct {
	Unparsable map[string]int
}

// Total returns the number of pass-through cells across all columns
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Unparsable {
		n += c
	}
	return n
}

// Columns returns the affected column names, sorted
func (s Stats) Columns() []string {
	cols := make([]string, 0, len(s.Unparsable))
	for c := range s.Unparsable {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Normalizer coerces a mapped statement into a typed canonical table
type Normalizer interface {
	Provider() domain.Provider
	Normalize(m Mapped) (domain.Table, Stats)
}

// For returns the normalizer of provider
func For(provider domain.Provider) (Normalizer, error) {
	switch provider {
	case domain.ProviderSina:
		return numericNormalizer{}, nil
	case domain.ProviderTHS:
		return magnitudeNormalizer{}, nil
	case domain.ProviderEastMoney:
		return eastMoneyNormalizer{}, nil
	default:
		return nil, fmt.Errorf("no normalizer for provider %q", provider)
	}
}

// coerceFunc converts one raw value. ok is false when the value passes through as text.
type coerceFunc func(v any) (cell domain.Cell, ok bool)

// numericNormalizer handles providers that deliver plain numbers
type numericNormalizer struct{}

func (numericNormalizer) Provider() domain.Provider { return domain.ProviderSina }

func (numericNormalizer) Normalize(m Mapped) (domain.Table, Stats) {
	return normalize(m, coerceNumeric)
}

// magnitudeNormalizer handles magnitude-suffixed strings and false-for-missing.
//
// The impairment loss items (资产减值损失, 信用减值损失) are reported with the
// opposite sign to the other providers. They are left as reported.
type magnitudeNormalizer struct{}

func (magnitudeNormalizer) Provider() domain.Provider { return domain.ProviderTHS }

func (magnitudeNormalizer) Normalize(m Mapped) (domain.Table, Stats) {
	return normalize(m, coerceMagnitude)
}

// eastMoneyNormalizer drops the provider's own growth columns, then coerces numbers
type eastMoneyNormalizer struct{}

func (eastMoneyNormalizer) Provider() domain.Provider { return domain.ProviderEastMoney }

func (eastMoneyNormalizer) Normalize(m Mapped) (domain.Table, Stats) {
	kept := make([]RawColumn, 0, len(m.Columns))
	for _, c := range m.Columns {
		if !strings.HasSuffix(c.Name, EastMoneyYoYSuffix) {
			kept = append(kept, c)
		}
	}
	m.Columns = kept
	return normalize(m, coerceNumeric)
}

func normalize(m Mapped, coerce coerceFunc) (domain.Table, Stats) {
	stats := Stats{Unparsable: make(map[string]int)}
	table := domain.Table{
		Periods: m.Periods,
		Columns: make([]domain.Column, len(m.Columns)),
	}

	for c, raw := range m.Columns {
		cells := make([]domain.Cell, len(raw.Values))
		var sample any
		for i, v := range raw.Values {
			cell, ok := coerce(v)
			if !ok {
				if stats.Unparsable[raw.Name] == 0 {
					sample = v
				}
				stats.Unparsable[raw.Name]++
			}
			cells[i] = cell
		}
		table.Columns[c] = domain.Column{Name: raw.Name, Cells: cells}

		if n := stats.Unparsable[raw.Name]; n > 0 {
			slog.Warn("Unparsable cells passed through as text",
				slog.String("provider", m.Provider.String()),
				slog.String("statement", string(m.Kind)),
				slog.String("column", raw.Name),
				slog.Int("count", n),
				slog.Any("sample", sample))
		}
	}
	return table, stats
}

func coerceNumeric(v any) (domain.Cell, bool) {
	switch x := v.(type) {
	case nil:
		return domain.Missing(), true
	case float64:
		return domain.Number(x), true
	case float32:
		return domain.Number(float64(x)), true
	case int:
		return domain.Number(float64(x)), true
	case int64:
		return domain.Number(float64(x)), true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return domain.Number(f), true
		}
		return domain.Text(x.String()), false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return domain.Missing(), true
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			return domain.Number(f), true
		}
		return domain.Text(x), false
	default:
		return domain.Text(fmt.Sprint(v)), false
	}
}

func coerceMagnitude(v any) (domain.Cell, bool) {
	switch x := v.(type) {
	case bool:
		if !x {
			return domain.Missing(), true
		}
		return domain.Text("true"), false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return domain.Missing(), true
		}
		if f, ok := ParseMagnitude(s); ok {
			return domain.Number(f), true
		}
		return domain.Text(x), false
	default:
		return coerceNumeric(v)
	}
}

// Statement maps and normalizes one raw statement
func Statement(raw domain.RawTable, sheet mapping.Sheet, provider domain.Provider) (domain.Table, Stats, error) {
	n, err := For(provider)
	if err != nil {
		return domain.Table{}, Stats{}, err
	}
	m, err := MapColumns(raw, sheet, provider)
	if err != nil {
		return domain.Table{}, Stats{}, err
	}
	table, stats := n.Normalize(m)
	return table, stats, nil
}
