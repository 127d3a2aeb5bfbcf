package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "finreport/internal/errors"
	"finreport/internal/mapping"
	"finreport/pkg/contracts/domain"
)

func incomeSheet() mapping.Sheet {
	return mapping.Sheet{Kind: domain.StatementIncome, Entries: []mapping.Entry{
		{THS: "报告期", EastMoney: "REPORT_DATE", Sina: "报告日", Item: domain.PeriodColumn},
		{THS: "*营业总收入", EastMoney: "TOTAL_OPERATE_INCOME", Sina: "营业总收入", Item: domain.FieldTotalRevenue},
		{THS: "其中：营业成本", EastMoney: "OPERATE_COST", Sina: "营业成本", Item: domain.FieldOperatingCost},
		{THS: "*净利润", EastMoney: "NETPROFIT", Sina: "净利润", Item: domain.FieldNetProfit},
	}}
}

func date(s string) time.Time {
	t, _ := time.Parse(domain.PeriodLayout, s)
	return t
}

func TestParsePeriod(t *testing.T) {
	want := date("2023-12-31")
	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{name: "iso date", input: "2023-12-31", want: want},
		{name: "datetime", input: "2023-12-31 00:00:00", want: want},
		{name: "slashes", input: "2023/12/31", want: want},
		{name: "compact string", input: "20231231", want: want},
		{name: "compact number", input: float64(20231231), want: want},
		{name: "rfc3339", input: "2023-12-31T00:00:00Z", want: want},
		{name: "time value", input: want, want: want},
		{name: "garbage", input: "Q4 2023", want: time.Time{}},
		{name: "nil", input: nil, want: time.Time{}},
		{name: "bool", input: false, want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ParsePeriod(tt.input)))
		})
	}
}

func TestMapColumns_Order(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"备注", "净利润", "报告日", "营业总收入", "其他"},
		Rows: [][]any{
			{"x", 10.0, "2023-12-31", 100.0, 1.0},
			{"y", 8.0, "bad-date", 90.0, 2.0},
		},
	}

	m, err := MapColumns(raw, incomeSheet(), domain.ProviderSina)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.FieldTotalRevenue, domain.FieldNetProfit, "备注", "其他"}, m.ColumnNames())
	assert.Equal(t, []time.Time{date("2023-12-31"), {}}, m.Periods)
	assert.Equal(t, []any{100.0, 90.0}, m.Columns[0].Values)
	assert.Equal(t, 2, m.Len())
}

func TestMapColumns_DuplicateCanonicalKeepsFirst(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"REPORT_DATE", "NETPROFIT", "净利润"},
		Rows:    [][]any{{"2023-12-31", 1.0, 2.0}},
	}

	m, err := MapColumns(raw, incomeSheet(), domain.ProviderEastMoney)
	require.NoError(t, err)
	require.Equal(t, []string{domain.FieldNetProfit}, m.ColumnNames())
	assert.Equal(t, []any{1.0}, m.Columns[0].Values)
}

func TestMapColumns_Errors(t *testing.T) {
	noPeriod := domain.RawTable{Columns: []string{"营业总收入"}, Rows: [][]any{{1.0}}}
	_, err := MapColumns(noPeriod, incomeSheet(), domain.ProviderSina)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingPeriod))

	m, err := MapColumns(domain.RawTable{Columns: []string{"营业总收入"}}, incomeSheet(), domain.ProviderSina)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Columns)

	ambiguous := incomeSheet()
	ambiguous.Entries = append(ambiguous.Entries, mapping.Entry{Sina: "净利润", Item: domain.FieldParentNetProfit})
	_, err = MapColumns(noPeriod, ambiguous, domain.ProviderSina)
	assert.True(t, errors.Is(err, apperrors.ErrAmbiguousMapping))
}

func TestParseMagnitude(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{input: "1.5亿", want: 150000000, ok: true},
		{input: "-3200万", want: -32000000, ok: true},
		{input: "2.5万亿", want: 2500000000000, ok: true},
		{input: "12千万", want: 120000000, ok: true},
		{input: "3百万", want: 3000000, ok: true},
		{input: "7千", want: 7000, ok: true},
		{input: "+.5亿", want: 50000000, ok: true},
		{input: "1,234.5", want: 1234.5, ok: true},
		{input: " 42 ", want: 42, ok: true},
		{input: "0.1亿", want: 10000000, ok: true},
		{input: "2023-12-31", ok: false},
		{input: "--", ok: false},
		{input: "1.5亿元", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseMagnitude(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFor(t *testing.T) {
	for _, p := range domain.Providers() {
		n, err := For(p)
		require.NoError(t, err)
		assert.Equal(t, p, n.Provider())
	}

	_, err := For(domain.Provider("yahoo"))
	assert.Error(t, err)
}

func TestNormalize_THS(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"报告期", "*营业总收入", "其中：营业成本", "*净利润", "资产减值损失"},
		Rows: [][]any{
			{"2023-12-31", "1.5亿", false, "-3200万", "--"},
			{"2022-12-31", "9000万", "", "12.5", "-100万"},
		},
	}

	table, stats, err := Statement(raw, incomeSheet(), domain.ProviderTHS)
	require.NoError(t, err)

	assert.Equal(t, []domain.Cell{domain.Number(150000000), domain.Number(90000000)}, table.Cells(domain.FieldTotalRevenue))
	assert.Equal(t, []domain.Cell{domain.Missing(), domain.Missing()}, table.Cells(domain.FieldOperatingCost))
	assert.Equal(t, []domain.Cell{domain.Number(-32000000), domain.Number(12.5)}, table.Cells(domain.FieldNetProfit))

	// sign convention of the impairment line is kept as reported
	assert.Equal(t, []domain.Cell{domain.Text("--"), domain.Number(-1000000)}, table.Cells("资产减值损失"))
	assert.Equal(t, 1, stats.Total())
	assert.Equal(t, []string{"资产减值损失"}, stats.Columns())
}

func TestNormalize_EastMoney(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"REPORT_DATE", "TOTAL_OPERATE_INCOME", "TOTAL_OPERATE_INCOME_YOY", "NETPROFIT", "SECURITY_CODE"},
		Rows: [][]any{
			{"2023-12-31 00:00:00", 100.0, 12.3, "8.5", "600519"},
			{"2022-12-31 00:00:00", nil, 1.0, 7.0, "600519"},
		},
	}

	table, stats, err := Statement(raw, incomeSheet(), domain.ProviderEastMoney)
	require.NoError(t, err)

	assert.Equal(t, []string{domain.FieldTotalRevenue, domain.FieldNetProfit, "SECURITY_CODE"}, table.ColumnNames())
	assert.Equal(t, []domain.Cell{domain.Number(100), domain.Missing()}, table.Cells(domain.FieldTotalRevenue))
	assert.Equal(t, []domain.Cell{domain.Number(8.5), domain.Number(7)}, table.Cells(domain.FieldNetProfit))
	assert.Equal(t, 0, stats.Total())
}

func TestNormalize_Sina(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"报告日", "营业总收入", "单位"},
		Rows: [][]any{
			{"20231231", 100.0, "元"},
			{"20221231", 90, "元"},
		},
	}

	table, stats, err := Statement(raw, incomeSheet(), domain.ProviderSina)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{date("2023-12-31"), date("2022-12-31")}, table.Periods)
	assert.Equal(t, []domain.Cell{domain.Number(100), domain.Number(90)}, table.Cells(domain.FieldTotalRevenue))
	assert.Equal(t, map[string]int{"单位": 2}, stats.Unparsable)

	col, ok := table.Column("单位")
	require.True(t, ok)
	assert.False(t, col.Numeric())
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{"报告期", "*营业总收入", "其他"},
		Rows: [][]any{
			{"2023-12-31", "1.5亿", "n/a"},
			{"2023-09-30", false, "1万"},
		},
	}

	first, _, err := Statement(raw, incomeSheet(), domain.ProviderTHS)
	require.NoError(t, err)
	second, _, err := Statement(raw, incomeSheet(), domain.ProviderTHS)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []any{"2023-12-31", "1.5亿", "n/a"}, raw.Rows[0], "raw input must not be modified")
}
