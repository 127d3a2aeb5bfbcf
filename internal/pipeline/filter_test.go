package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finreport/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.PeriodLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func filterResult(t *testing.T) *Result {
	t.Helper()
	periods := []time.Time{day("2024-03-31"), day("2023-12-31"), day("2023-09-30"), day("2022-12-31"), day("2017-12-31")}
	n := func(vs ...float64) []domain.Cell {
		out := make([]domain.Cell, len(vs))
		for i, v := range vs {
			out[i] = domain.Number(v)
		}
		return out
	}

	income, err := domain.NewTable(periods,
		domain.Column{Name: domain.KeyTotalRevenue, Cells: n(1, 2, 3, 4, 5)},
		domain.Column{Name: domain.FieldTotalRevenue, Cells: n(1, 2, 3, 4, 5)},
		domain.Column{Name: "其他收益", Cells: n(1, 1, 1, 1, 1)},
		domain.Column{Name: domain.FieldRDExpense, Cells: domain.MissingCells(5)},
		domain.Column{Name: domain.RatioGrossMargin, Cells: n(10, 20, 30, 40, 50)},
	)
	require.NoError(t, err)

	cross, err := domain.NewTable(periods,
		domain.Column{Name: "其他收益", Cells: n(1, 1, 1, 1, 1)},
	)
	require.NoError(t, err)

	return NewResult("600519", domain.ProviderSina, map[domain.ReportName]domain.Table{
		domain.ReportIncomeByReport: income,
		domain.ReportCross:          cross,
	})
}

func TestFilter_Years(t *testing.T) {
	res := Filter(filterResult(t), FilterOptions{FromYear: 2022, ToYear: 2023}, testBook())

	income, _ := res.Report(domain.ReportIncomeByReport)
	require.Equal(t, 3, income.Len())
	assert.Equal(t, day("2023-12-31"), income.Periods[0])
	assert.Equal(t, day("2022-12-31"), income.Periods[2])
}

func TestFilter_Quarters(t *testing.T) {
	res := Filter(filterResult(t), FilterOptions{Quarters: []int{4}}, testBook())

	income, _ := res.Report(domain.ReportIncomeByReport)
	require.Equal(t, 3, income.Len())
	for _, p := range income.Periods {
		assert.Equal(t, time.December, p.Month())
	}
}

func TestFilter_KeepLatest(t *testing.T) {
	tests := []struct {
		name  string
		opts  FilterOptions
		first time.Time
		rows  int
	}{
		{
			name:  "latest restored in front",
			opts:  FilterOptions{Quarters: []int{4}, KeepLatest: true},
			first: day("2024-03-31"),
			rows:  4,
		},
		{
			name:  "latest already present",
			opts:  FilterOptions{FromYear: 2024, KeepLatest: true},
			first: day("2024-03-31"),
			rows:  1,
		},
		{
			name:  "everything filtered out",
			opts:  FilterOptions{FromYear: 2030, KeepLatest: true},
			first: day("2024-03-31"),
			rows:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Filter(filterResult(t), tt.opts, testBook())
			income, _ := res.Report(domain.ReportIncomeByReport)
			require.Equal(t, tt.rows, income.Len())
			assert.Equal(t, tt.first, income.Periods[0])
		})
	}
}

func TestFilter_Columns(t *testing.T) {
	res := Filter(filterResult(t), FilterOptions{DropEmptyColumns: true, MappedOnly: true}, testBook())

	income, _ := res.Report(domain.ReportIncomeByReport)
	assert.Equal(t, []string{domain.KeyTotalRevenue, domain.FieldTotalRevenue, domain.RatioGrossMargin}, income.ColumnNames())

	cross, _ := res.Report(domain.ReportCross)
	assert.True(t, cross.Has("其他收益"), "cross table keeps every column")
}

func TestFilter_LeavesSourceUntouched(t *testing.T) {
	src := filterResult(t)
	_ = Filter(src, FilterOptions{FromYear: 2024, DropEmptyColumns: true, MappedOnly: true}, testBook())

	income, _ := src.Report(domain.ReportIncomeByReport)
	assert.Equal(t, 5, income.Len())
	assert.Len(t, income.Columns, 5)
}

func TestDefaultFilterOptions(t *testing.T) {
	res := filterResult(t)

	minYear, maxYear := YearRange(res)
	assert.Equal(t, 2017, minYear)
	assert.Equal(t, 2024, maxYear)

	opts := DefaultFilterOptions(res)
	assert.Equal(t, 2019, opts.FromYear)
	assert.Equal(t, 2024, opts.ToYear)
	assert.True(t, opts.KeepLatest)

	income, _ := Filter(res, opts, testBook()).Report(domain.ReportIncomeByReport)
	assert.Equal(t, 4, income.Len())
}

func TestIsDerived(t *testing.T) {
	assert.True(t, IsDerived(domain.KeyCoreProfit))
	assert.True(t, IsDerived(domain.RatioNetMargin))
	assert.True(t, IsDerived(domain.InterestBearingDebt))
	assert.False(t, IsDerived(domain.FieldNetProfit))
}
