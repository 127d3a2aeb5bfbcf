package derive

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finreport/pkg/contracts/domain"
)

func period(s string) time.Time {
	t, err := time.Parse(domain.PeriodLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func periods(ss ...string) []time.Time {
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		out[i] = period(s)
	}
	return out
}

func nums(vs ...float64) []domain.Cell {
	cells := make([]domain.Cell, len(vs))
	for i, v := range vs {
		cells[i] = domain.Number(v)
	}
	return cells
}

// nan marks a missing value in nums
var nan = math.NaN()

func table(t *testing.T, ps []time.Time, cols ...domain.Column) domain.Table {
	t.Helper()
	tbl, err := domain.NewTable(ps, cols...)
	require.NoError(t, err)
	return tbl
}

func col(name string, cells []domain.Cell) domain.Column {
	return domain.Column{Name: name, Cells: cells}
}

func assertCells(t *testing.T, want []float64, got []domain.Cell) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		v, ok := got[i].Float()
		if math.IsNaN(w) {
			assert.False(t, ok, "row %d: want missing, got %v", i, got[i])
			continue
		}
		if assert.True(t, ok, "row %d: want %v, got missing", i, w) {
			assert.InDelta(t, w, v, 1e-9, "row %d", i)
		}
	}
}

func TestSingleQuarter(t *testing.T) {
	tests := []struct {
		name    string
		periods []time.Time
		values  []float64
		want    []float64
	}{
		{
			name:    "full fiscal year",
			periods: periods("2023-12-31", "2023-09-30", "2023-06-30", "2023-03-31"),
			values:  []float64{90, 55, 30, 10},
			want:    []float64{35, 25, 20, 10},
		},
		{
			name:    "across fiscal years",
			periods: periods("2024-03-31", "2023-12-31", "2023-09-30"),
			values:  []float64{12, 90, 55},
			want:    []float64{12, 35, nan},
		},
		{
			name:    "missing operand propagates",
			periods: periods("2023-12-31", "2023-09-30", "2023-06-30", "2023-03-31"),
			values:  []float64{90, nan, 30, nan},
			want:    []float64{nan, nan, nan, nan},
		},
		{
			name:    "unknown period is differenced",
			periods: []time.Time{{}, period("2023-03-31")},
			values:  []float64{15, 10},
			want:    []float64{5, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := table(t, tt.periods, col(domain.FieldTotalRevenue, nums(tt.values...)))
			out := SingleQuarter(in)
			assertCells(t, tt.want, out.Cells(domain.FieldTotalRevenue))
			assert.Equal(t, tt.periods, out.Periods)
		})
	}
}

func TestSingleQuarter_DropsTextColumns(t *testing.T) {
	in := table(t, periods("2023-06-30", "2023-03-31"),
		col("备注", []domain.Cell{domain.Text("a"), domain.Missing()}),
		col(domain.FieldNetProfit, nums(8, 3)),
	)

	out := SingleQuarter(in)
	assert.Equal(t, []string{domain.FieldNetProfit}, out.ColumnNames())
	assertCells(t, []float64{5, 3}, out.Cells(domain.FieldNetProfit))
	assertCells(t, []float64{8, 3}, in.Cells(domain.FieldNetProfit))
}

func TestYoY(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		offset int
		want   []float64
	}{
		{name: "growth", values: []float64{120, 100}, offset: 1, want: []float64{20, nan}},
		{name: "zero previous", values: []float64{120, 0}, offset: 1, want: []float64{nan, nan}},
		{name: "negative previous", values: []float64{-50, -100}, offset: 1, want: []float64{50, nan}},
		{name: "sign flip", values: []float64{50, -100}, offset: 1, want: []float64{150, nan}},
		{name: "missing current", values: []float64{nan, 100}, offset: 1, want: []float64{nan, nan}},
		{
			name:   "quarterly offset",
			values: []float64{110, 1, 2, 3, 100, 5},
			offset: QuarterlyOffset,
			want:   []float64{10, -80, nan, nan, nan, nan},
		},
		{name: "no offset", values: []float64{1, 2}, offset: 0, want: []float64{nan, nan}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YoY(nums(tt.values...), tt.offset)
			assertCells(t, tt.want, got)
			for _, c := range got {
				v, ok := c.Float()
				if ok {
					assert.False(t, math.IsInf(v, 0))
				}
			}
		})
	}
}

func TestYoYTable(t *testing.T) {
	in := table(t, periods("2023-12-31", "2022-12-31"),
		col(domain.FieldTotalRevenue, nums(120, 100)),
		col("单位", []domain.Cell{domain.Text("元"), domain.Text("元")}),
	)

	out := YoYTable(in, 1)
	assert.Equal(t, []string{domain.FieldTotalRevenue}, out.ColumnNames())
	assert.Equal(t, in.Periods, out.Periods)
	assertCells(t, []float64{20, nan}, out.Cells(domain.FieldTotalRevenue))
}

func fullIncome(t *testing.T) domain.Table {
	return table(t, periods("2023-12-31", "2017-12-31"),
		col(domain.FieldTotalRevenue, nums(1000, 800)),
		col(domain.FieldOperatingCost, nums(600, 500)),
		col(domain.FieldTaxesAndSurcharges, nums(10, 8)),
		col(domain.FieldSellingExpense, nums(50, 40)),
		col(domain.FieldAdminExpense, nums(40, 30)),
		col(domain.FieldRDExpense, nums(30, nan)),
		col(domain.FieldFinancialExpense, nums(20, 10)),
		col(domain.FieldNetProfit, nums(200, 150)),
		col(domain.FieldParentNetProfit, nums(180, 140)),
	)
}

func TestIncomeKeyMetrics(t *testing.T) {
	out := IncomeKeyMetrics(fullIncome(t))

	assert.Equal(t, []string{
		domain.KeyTotalRevenue, domain.KeyGrossProfit, domain.KeyCoreProfit,
		domain.KeyNetProfit, domain.KeyParentNetProfit,
	}, out.ColumnNames()[:5])
	assert.False(t, out.Has(domain.KeyDeductedNetProfit))

	assertCells(t, []float64{1000, 800}, out.Cells(domain.KeyTotalRevenue))
	assertCells(t, []float64{400, 300}, out.Cells(domain.KeyGrossProfit))
	// 2017 has no separate R&D line: zero-filled rather than missing
	assertCells(t, []float64{250, 212}, out.Cells(domain.KeyCoreProfit))
	assertCells(t, []float64{30, 0}, out.Cells(domain.FieldRDExpense))
	assertCells(t, []float64{200, 150}, out.Cells(domain.KeyNetProfit))
}

func TestIncomeKeyMetrics_Gating(t *testing.T) {
	t.Run("without R&D column", func(t *testing.T) {
		in := fullIncome(t)
		in = in.SelectColumns(func(c domain.Column) bool { return c.Name != domain.FieldRDExpense })

		out := IncomeKeyMetrics(in)
		require.True(t, out.Has(domain.KeyCoreProfit))
		assertCells(t, []float64{280, 212}, out.Cells(domain.KeyCoreProfit))
	})

	t.Run("without operating cost", func(t *testing.T) {
		in := fullIncome(t)
		in = in.SelectColumns(func(c domain.Column) bool { return c.Name != domain.FieldOperatingCost })

		out := IncomeKeyMetrics(in)
		assert.False(t, out.Has(domain.KeyGrossProfit))
		assertCells(t, []float64{850, 712}, out.Cells(domain.KeyCoreProfit))
	})

	t.Run("bank statement without revenue or cost", func(t *testing.T) {
		in := table(t, periods("2023-12-31"), col(domain.FieldNetProfit, nums(5)))

		out := IncomeKeyMetrics(in)
		assert.False(t, out.Has(domain.KeyGrossProfit))
		assert.False(t, out.Has(domain.KeyCoreProfit))
		assert.False(t, out.Has(domain.KeyTotalRevenue))
		assert.Equal(t, []string{domain.KeyNetProfit, domain.FieldNetProfit}, out.ColumnNames())
	})

	t.Run("empty statement", func(t *testing.T) {
		out := IncomeKeyMetrics(domain.Table{})
		assert.True(t, out.Empty())
		assert.Empty(t, out.Columns)
	})
}

func TestIncomeRatios(t *testing.T) {
	out := IncomeRatios(IncomeKeyMetrics(fullIncome(t)))

	assertCells(t, []float64{40, 37.5}, out.Cells(domain.RatioGrossMargin))
	assertCells(t, []float64{25, 26.5}, out.Cells(domain.RatioCoreMargin))
	assertCells(t, []float64{20, 18.75}, out.Cells(domain.RatioNetMargin))
	assertCells(t, []float64{5, 5}, out.Cells(domain.RatioSellingExpense))
	assertCells(t, []float64{3, 0}, out.Cells(domain.RatioRDExpense))
	assertCells(t, []float64{14, 10}, out.Cells(domain.RatioFourExpenses))
	assert.False(t, out.Has(domain.RatioThreeExpenses))
}

func TestIncomeRatios_ThreeExpensesAndZeroRevenue(t *testing.T) {
	in := table(t, periods("2023-12-31", "2023-09-30"),
		col(domain.FieldTotalRevenue, nums(200, 0)),
		col(domain.FieldSellingExpense, nums(10, 1)),
		col(domain.FieldAdminExpense, nums(10, 1)),
		col(domain.FieldFinancialExpense, nums(10, 1)),
	)

	out := IncomeRatios(in)
	assert.False(t, out.Has(domain.RatioFourExpenses))
	assertCells(t, []float64{15, nan}, out.Cells(domain.RatioThreeExpenses))
	assertCells(t, []float64{5, nan}, out.Cells(domain.RatioSellingExpense))

	noRevenue := table(t, periods("2023-12-31"), col(domain.FieldSellingExpense, nums(1)))
	assert.Equal(t, noRevenue, IncomeRatios(noRevenue))
}

func TestOuterJoin_Union(t *testing.T) {
	income := table(t, periods("2023-12-31", "2023-09-30"), col(domain.KeyTotalRevenue, nums(100, 70)))
	balance := table(t, periods("2023-12-31"), col(domain.FieldTotalAssets, nums(500)))
	cash := table(t, periods("2023-09-30"), col(domain.FieldEndingCash, nums(40)))

	out := Cross(income, balance, cash)

	assert.Equal(t, periods("2023-12-31", "2023-09-30"), out.Periods)
	assertCells(t, []float64{100, 70}, out.Cells(domain.KeyTotalRevenue))
	assertCells(t, []float64{500, nan}, out.Cells(domain.FieldTotalAssets))
	assertCells(t, []float64{nan, 40}, out.Cells(domain.FieldEndingCash))
}

func TestCross_SortsAndSelects(t *testing.T) {
	income := table(t, periods("2022-12-31", "2023-12-31"),
		col(domain.KeyTotalRevenue, nums(80, 100)),
		col(domain.FieldSellingExpense, nums(1, 2)),
	)
	balance := table(t, periods("2021-12-31"), col(domain.FieldTotalAssets, nums(300)))

	out := Cross(income, balance, domain.Table{})

	assert.Equal(t, periods("2023-12-31", "2022-12-31", "2021-12-31"), out.Periods)
	assert.False(t, out.Has(domain.FieldSellingExpense))
	assertCells(t, []float64{100, 80, nan}, out.Cells(domain.KeyTotalRevenue))
}

func TestCrossRatios(t *testing.T) {
	in := table(t, periods("2023-12-31", "2022-12-31"),
		col(domain.KeyTotalRevenue, nums(1000, 0)),
		col(domain.FieldTotalAssets, nums(2000, 1000)),
		col(domain.FieldTotalLiabilities, nums(800, 500)),
		col(domain.FieldFixedAssets, nums(400, 100)),
		col(domain.FieldNotesAccountsRecv, nums(150, 100)),
		col(domain.FieldReceivablesFinancing, nums(50, nan)),
		col(domain.FieldNotesAccountsPay, nums(100, 50)),
		col(domain.FieldShortTermBorrowing, nums(100, nan)),
		col(domain.FieldBondsPayable, nums(50, 20)),
		col(domain.FieldEndingCash, nums(300, 0)),
	)

	out := CrossRatios(in)

	assert.Equal(t, CrossRatioColumns, out.ColumnNames()[:len(CrossRatioColumns)])
	assertCells(t, []float64{50, nan}, out.Cells(domain.RatioReceivablePayable))
	assertCells(t, []float64{150, 20}, out.Cells(domain.InterestBearingDebt))
	assertCells(t, []float64{50, nan}, out.Cells(domain.RatioInterestDebtCash))
	assertCells(t, []float64{20, nan}, out.Cells(domain.RatioReceivableRevenue))
	assertCells(t, []float64{40, 50}, out.Cells(domain.RatioDebtToAsset))
	assertCells(t, []float64{20, 10}, out.Cells(domain.RatioFixedAssetToAsset))

	// components are summed zero-filled but left as reported
	assertCells(t, []float64{100, nan}, out.Cells(domain.FieldShortTermBorrowing))
}

func TestCrossRatios_Gating(t *testing.T) {
	in := table(t, periods("2023-12-31"),
		col(domain.FieldNotesAccountsRecv, nums(200)),
		col(domain.FieldNotesAccountsPay, nums(50)),
	)

	out := CrossRatios(in)

	assertCells(t, []float64{75}, out.Cells(domain.RatioReceivablePayable))
	assertCells(t, []float64{0}, out.Cells(domain.InterestBearingDebt))
	for _, name := range []string{
		domain.RatioInterestDebtCash,
		domain.RatioReceivableRevenue,
		domain.RatioDebtToAsset,
		domain.RatioFixedAssetToAsset,
	} {
		assert.False(t, out.Has(name), name)
	}
}
