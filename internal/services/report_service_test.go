package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"finreport/internal/cache"
	apperrors "finreport/internal/errors"
	"finreport/internal/fetch"
	"finreport/internal/infrastructure"
	"finreport/internal/mapping"
	"finreport/internal/pipeline"
	"finreport/pkg/contracts/domain"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchAll(ctx context.Context, code string, provider domain.Provider) (map[domain.StatementKind]domain.RawTable, []fetch.Failure, error) {
	args := m.Called(ctx, code, provider)
	raw, _ := args.Get(0).(map[domain.StatementKind]domain.RawTable)
	failures, _ := args.Get(1).([]fetch.Failure)
	return raw, failures, args.Error(2)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func serviceBook() *mapping.Book {
	period := mapping.Entry{THS: "报告期", EastMoney: "REPORT_DATE", Sina: "报告日", Item: domain.PeriodColumn}
	return mapping.NewBook(
		mapping.Sheet{Kind: domain.StatementIncome, Entries: []mapping.Entry{
			period,
			{THS: "*营业总收入", EastMoney: "TOTAL_OPERATE_INCOME", Sina: "营业总收入", Item: domain.FieldTotalRevenue},
			{THS: "*净利润", EastMoney: "NETPROFIT", Sina: "净利润", Item: domain.FieldNetProfit},
		}},
		mapping.Sheet{Kind: domain.StatementBalance, Entries: []mapping.Entry{
			period,
			{THS: "资产合计", EastMoney: "TOTAL_ASSETS", Sina: "资产总计", Item: domain.FieldTotalAssets},
			{THS: "负债合计", EastMoney: "TOTAL_LIABILITIES", Sina: "负债合计", Item: domain.FieldTotalLiabilities},
		}},
		mapping.Sheet{Kind: domain.StatementCashFlow, Entries: []mapping.Entry{
			period,
			{THS: "期末现金及现金等价物余额", EastMoney: "END_CCE", Sina: "期末现金及现金等价物余额", Item: domain.FieldEndingCash},
		}},
	)
}

// eastMoneyRaw covers 2016 to 2023 year ends so the default filter has rows to drop
func eastMoneyRaw() map[domain.StatementKind]domain.RawTable {
	income := domain.RawTable{Columns: []string{"REPORT_DATE", "TOTAL_OPERATE_INCOME", "NETPROFIT"}}
	balance := domain.RawTable{Columns: []string{"REPORT_DATE", "TOTAL_ASSETS", "TOTAL_LIABILITIES"}}
	for year := 2023; year >= 2016; year-- {
		date := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format(domain.PeriodLayout)
		income.Rows = append(income.Rows, []any{date, float64(year) * 10, float64(year)})
		balance.Rows = append(balance.Rows, []any{date, 1000.0, 400.0})
	}
	return map[domain.StatementKind]domain.RawTable{
		domain.StatementIncome:   income,
		domain.StatementBalance:  balance,
		domain.StatementCashFlow: {},
	}
}

type serviceFixture struct {
	fetcher *mockFetcher
	cache   *cache.ResultCache
	reader  *sdkmetric.ManualReader
	service *ReportService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	p, err := pipeline.New(serviceBook(), pipeline.WithLogger(quietLogger()))
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	c := cache.New(time.Minute, 8)
	t.Cleanup(c.Stop)

	f := &mockFetcher{}
	return &serviceFixture{
		fetcher: f,
		cache:   c,
		reader:  reader,
		service: NewReportService(f, p, quietLogger(), WithCache(c), WithBusinessMetrics(metrics)),
	}
}

func (f *serviceFixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestReportService_GetReport_CachesResult(t *testing.T) {
	f := newServiceFixture(t)
	f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderEastMoney).
		Return(eastMoneyRaw(), nil, nil).Once()

	req := ReportRequest{Code: "600519", Provider: domain.ProviderEastMoney}

	first, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, first.Reports, len(domain.ReportNames()))

	second, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Diagnostics.RunID, second.Diagnostics.RunID)

	f.fetcher.AssertExpectations(t)
	assert.Equal(t, 1, f.cache.Len())
	assert.Equal(t, int64(1), f.counter(t, "finreport_cache_hits_total"))
	assert.Equal(t, int64(1), f.counter(t, "finreport_cache_misses_total"))
	assert.Equal(t, int64(2), f.counter(t, "finreport_report_requests_total"))
}

func TestReportService_GetReport_Refresh(t *testing.T) {
	f := newServiceFixture(t)
	f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderEastMoney).
		Return(eastMoneyRaw(), nil, nil).Twice()

	req := ReportRequest{Code: "600519", Provider: domain.ProviderEastMoney}
	_, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)

	req.Refresh = true
	resp, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	f.fetcher.AssertExpectations(t)
}

func TestReportService_GetReport_PartialFailure(t *testing.T) {
	f := newServiceFixture(t)
	raw := eastMoneyRaw()
	raw[domain.StatementBalance] = domain.RawTable{}
	failures := []fetch.Failure{{Kind: domain.StatementBalance, Err: "upstream timeout"}}
	f.fetcher.On("FetchAll", mock.Anything, "000001", domain.ProviderEastMoney).
		Return(raw, failures, nil).Twice()

	req := ReportRequest{Code: "000001", Provider: domain.ProviderEastMoney}
	resp, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, failures, resp.Failures)

	balance := findReport(resp.Reports, domain.ReportBalanceByReport)
	require.NotNil(t, balance)
	assert.True(t, balance.Table.Empty())

	// not cached, so the next request fetches again
	_, err = f.service.GetReport(context.Background(), req)
	require.NoError(t, err)
	f.fetcher.AssertExpectations(t)
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, int64(2), f.counter(t, "finreport_fetch_failures_total"))
}

func TestReportService_GetReport_NoData(t *testing.T) {
	f := newServiceFixture(t)
	failures := []fetch.Failure{
		{Kind: domain.StatementIncome, Err: "not found"},
		{Kind: domain.StatementCashFlow, Err: "not found"},
		{Kind: domain.StatementBalance, Err: "not found"},
	}
	empty := map[domain.StatementKind]domain.RawTable{}
	f.fetcher.On("FetchAll", mock.Anything, "999999", domain.ProviderSina).Return(empty, failures, nil)

	resp, err := f.service.GetReport(context.Background(), ReportRequest{Code: "999999", Provider: domain.ProviderSina})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, apperrors.ErrNoData))
	assert.Equal(t, int64(1), f.counter(t, "finreport_report_requests_total"))
}

func TestReportService_GetReport_Errors(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.GetReport(context.Background(), ReportRequest{Code: "600519", Provider: "yahoo"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		f.fetcher.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled fetch", func(t *testing.T) {
		f := newServiceFixture(t)
		f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderTHS).Return(nil, nil, context.Canceled)
		_, err := f.service.GetReport(context.Background(), ReportRequest{Code: "600519", Provider: domain.ProviderTHS})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, f.cache.Len())
	})
}

func TestReportService_GetReport_Filter(t *testing.T) {
	f := newServiceFixture(t)
	f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderEastMoney).Return(eastMoneyRaw(), nil, nil).Once()

	resp, err := f.service.GetReport(context.Background(), ReportRequest{Code: "600519", Provider: domain.ProviderEastMoney})
	require.NoError(t, err)
	assert.Equal(t, 2018, resp.Filter.FromYear)
	assert.Equal(t, 2023, resp.Filter.ToYear)
	income := findReport(resp.Reports, domain.ReportIncomeByReport)
	require.NotNil(t, income)
	assert.Equal(t, 6, income.Table.Len())

	resp, err = f.service.GetReport(context.Background(), ReportRequest{
		Code:     "600519",
		Provider: domain.ProviderEastMoney,
		Filter:   &pipeline.FilterOptions{},
	})
	require.NoError(t, err)
	income = findReport(resp.Reports, domain.ReportIncomeByReport)
	assert.Equal(t, 8, income.Table.Len())
}

func TestReportService_Display(t *testing.T) {
	f := newServiceFixture(t)
	f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderEastMoney).Return(eastMoneyRaw(), nil, nil)

	resp, err := f.service.GetReport(context.Background(), ReportRequest{
		Code:     "600519",
		Provider: domain.ProviderEastMoney,
		Filter:   &pipeline.FilterOptions{FromYear: 2023},
	})
	require.NoError(t, err)

	display := resp.Display()
	require.Len(t, display, len(resp.Reports))
	for _, d := range display {
		if d.Name != domain.ReportIncomeByReport {
			continue
		}
		require.NotEmpty(t, d.Rows)
		assert.Equal(t, []string{domain.PeriodColumn, "2023-12-31"}, d.Rows[0])
	}
}

func TestReportService_ExportWorkbook(t *testing.T) {
	f := newServiceFixture(t)
	f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderEastMoney).Return(eastMoneyRaw(), nil, nil)

	var buf bytes.Buffer
	err := f.service.ExportWorkbook(context.Background(), ReportRequest{Code: "600519", Provider: domain.ProviderEastMoney}, &buf)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	assert.Len(t, wb.GetSheetList(), len(domain.ReportNames()))
	assert.Equal(t, domain.ReportCross.Title(), wb.GetSheetList()[0])
}

func TestReportService_Providers(t *testing.T) {
	s := NewReportService(&mockFetcher{}, nil, nil)
	providers := s.Providers()
	require.Len(t, providers, 3)
	assert.Equal(t, ProviderInfo{ID: domain.ProviderTHS, Label: "同花顺"}, providers[0])
	assert.Nil(t, s.CacheStats())
}

func TestReportService_Invalidate(t *testing.T) {
	f := newServiceFixture(t)
	f.fetcher.On("FetchAll", mock.Anything, "600519", domain.ProviderEastMoney).Return(eastMoneyRaw(), nil, nil).Twice()

	req := ReportRequest{Code: "600519", Provider: domain.ProviderEastMoney}
	_, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)

	f.service.Invalidate("600519", domain.ProviderEastMoney)
	resp, err := f.service.GetReport(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	f.fetcher.AssertExpectations(t)
}

func findReport(reports []pipeline.Report, name domain.ReportName) *pipeline.Report {
	for i := range reports {
		if reports[i].Name == name {
			return &reports[i]
		}
	}
	return nil
}
