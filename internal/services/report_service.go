package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finreport/internal/cache"
	apperrors "finreport/internal/errors"
	"finreport/internal/exporter"
	"finreport/internal/fetch"
	"finreport/internal/infrastructure"
	"finreport/internal/mapping"
	"finreport/internal/pipeline"
	"finreport/pkg/contracts/domain"
)

// StatementFetcher retrieves the raw statements of one entity
type StatementFetcher interface {
	FetchAll(ctx context.Context, code string, provider domain.Provider) (map[domain.StatementKind]domain.RawTable, []fetch.Failure, error)
}

// ReportRunner turns raw statements into reports
type ReportRunner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Book() *mapping.Book
}

// ReportRequest selects an entity and how its reports are presented
type ReportRequest struct {
	Code     string
	Provider domain.Provider
	// Filter is applied to the reports; nil uses pipeline.DefaultFilterOptions
	Filter *pipeline.FilterOptions
	// Refresh bypasses the cache
	Refresh bool
}

// ReportResponse is the filtered output of one request
type ReportResponse struct {
	Code        string                 `json:"code"`
	Provider    domain.Provider        `json:"provider"`
	GeneratedAt time.Time              `json:"generated_at"`
	Cached      bool                   `json:"cached"`
	Filter      pipeline.FilterOptions `json:"filter"`
	Diagnostics pipeline.Diagnostics   `json:"diagnostics"`
	Failures    []fetch.Failure        `json:"failures,omitempty"`
	Reports     []pipeline.Report      `json:"reports"`
}

// DisplayReport is a report rendered to display strings, items as rows
type DisplayReport struct {
	Name  domain.ReportName `json:"name"`
	Title string            `json:"title"`
	Rows  [][]string        `json:"rows"`
}

// Display formats every report for presentation
func (r *ReportResponse) Display() []DisplayReport {
	out := make([]DisplayReport, len(r.Reports))
	for i, rep := range r.Reports {
		out[i] = DisplayReport{Name: rep.Name, Title: rep.Title, Rows: exporter.DisplayRows(rep.Table)}
	}
	return out
}

// ProviderInfo describes a supported provider
type ProviderInfo struct {
	ID    domain.Provider `json:"id"`
	Label string          `json:"label"`
}

// ReportService fetches, computes, caches and filters financial reports
type ReportService struct {
	fetcher StatementFetcher
	runner  ReportRunner
	cache   *cache.ResultCache
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// ReportServiceOption configures a ReportService
type ReportServiceOption func(*ReportService)

// WithCache enables result caching
func WithCache(c *cache.ResultCache) ReportServiceOption {
	return func(s *ReportService) {
		s.cache = c
	}
}

// WithBusinessMetrics records request, cache and fetch counters
func WithBusinessMetrics(m *infrastructure.BusinessMetrics) ReportServiceOption {
	return func(s *ReportService) {
		s.metrics = m
	}
}

// NewReportService creates a report service
func NewReportService(fetcher StatementFetcher, runner ReportRunner, logger *slog.Logger, opts ...ReportServiceOption) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReportService{
		fetcher: fetcher,
		runner:  runner,
		logger:  logger.With(slog.String("component", "report_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetReport returns the filtered reports for one entity
func (s *ReportService) GetReport(ctx context.Context, req ReportRequest) (*ReportResponse, error) {
	if !req.Provider.Valid() {
		return nil, apperrors.NewAppValidationError("unknown provider " + req.Provider.String())
	}

	res, failures, cached, err := s.result(ctx, req)
	s.countRequest(ctx, req.Provider, err)
	if err != nil {
		return nil, err
	}

	opts := pipeline.DefaultFilterOptions(res)
	if req.Filter != nil {
		opts = *req.Filter
	}
	filtered := pipeline.Filter(res, opts, s.runner.Book())

	return &ReportResponse{
		Code:        res.Code,
		Provider:    res.Provider,
		GeneratedAt: res.GeneratedAt,
		Cached:      cached,
		Filter:      opts,
		Diagnostics: res.Diagnostics,
		Failures:    failures,
		Reports:     filtered.Reports(),
	}, nil
}

// ExportWorkbook writes the filtered reports of one entity as an xlsx workbook
func (s *ReportService) ExportWorkbook(ctx context.Context, req ReportRequest, w io.Writer) error {
	resp, err := s.GetReport(ctx, req)
	if err != nil {
		return err
	}
	return exporter.WriteWorkbook(w, resp.Reports)
}

// Providers lists the supported providers
func (s *ReportService) Providers() []ProviderInfo {
	providers := domain.Providers()
	out := make([]ProviderInfo, len(providers))
	for i, p := range providers {
		out[i] = ProviderInfo{ID: p, Label: p.Label()}
	}
	return out
}

// Invalidate drops the cached result of one entity
func (s *ReportService) Invalidate(code string, provider domain.Provider) {
	if s.cache != nil {
		s.cache.Invalidate(cache.Key{Code: code, Provider: provider})
	}
}

// CacheStats returns cache statistics, nil when caching is disabled
func (s *ReportService) CacheStats() map[string]interface{} {
	if s.cache == nil {
		return nil
	}
	return s.cache.GetStats()
}

func (s *ReportService) result(ctx context.Context, req ReportRequest) (*pipeline.Result, []fetch.Failure, bool, error) {
	key := cache.Key{Code: req.Code, Provider: req.Provider}
	attrs := metric.WithAttributes(attribute.String("provider", req.Provider.String()))

	if s.cache != nil && !req.Refresh {
		if res, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.CacheHits.Add(ctx, 1, attrs)
			}
			s.logger.DebugContext(ctx, "Report served from cache",
				slog.String("code", req.Code),
				slog.String("provider", req.Provider.String()))
			return res, nil, true, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Add(ctx, 1, attrs)
		}
	}

	raw, failures, err := s.fetcher.FetchAll(ctx, req.Code, req.Provider)
	if err != nil {
		return nil, failures, false, err
	}
	if len(failures) > 0 {
		if s.metrics != nil {
			s.metrics.FetchFailures.Add(ctx, int64(len(failures)), attrs)
		}
		s.logger.WarnContext(ctx, "Some statements could not be fetched",
			slog.String("code", req.Code),
			slog.String("provider", req.Provider.String()),
			slog.Int("failures", len(failures)))
	}

	res, err := s.runner.Run(ctx, pipeline.Input{Code: req.Code, Provider: req.Provider, Raw: raw})
	if err != nil {
		return nil, failures, false, err
	}

	// partial results are not cached so a later request can retry the failed statements
	if s.cache != nil && len(failures) == 0 {
		s.cache.Set(key, res)
	}

	s.logger.InfoContext(ctx, "Report computed",
		slog.String("code", req.Code),
		slog.String("provider", req.Provider.String()),
		slog.String("run_id", res.Diagnostics.RunID),
		slog.Int("unparsable", res.Diagnostics.UnparsableTotal()),
		slog.Duration("duration", res.Diagnostics.Duration))
	return res, failures, false, nil
}

func (s *ReportService) countRequest(ctx context.Context, provider domain.Provider, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ReportRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider.String()),
		attribute.String("status", status),
	))
}
