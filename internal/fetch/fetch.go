// Package fetch loads raw provider statements for the pipeline.
package fetch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"finreport/pkg/contracts/domain"
)

// Source returns one raw statement of one entity
type Source interface {
	Fetch(ctx context.Context, code string, provider domain.Provider, kind domain.StatementKind) (domain.RawTable, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, code string, provider domain.Provider, kind domain.StatementKind) (domain.RawTable, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context, code string, provider domain.Provider, kind domain.StatementKind) (domain.RawTable, error) {
	return f(ctx, code, provider, kind)
}

// ProviderSymbol returns the symbol a provider files an entity under.
// East Money prefixes the exchange: SH for codes starting with 6, SZ for 0 and 3.
func ProviderSymbol(code string, provider domain.Provider) string {
	if provider != domain.ProviderEastMoney {
		return code
	}
	switch {
	case strings.HasPrefix(code, "6"):
		return "SH" + code
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "3"):
		return "SZ" + code
	default:
		return code
	}
}

// Config controls concurrent fetching
type Config struct {
	// Timeout bounds each statement fetch. Zero means no per-task timeout.
	Timeout time.Duration
	// RequestsPerSecond and Burst configure the limiter shared by all tasks.
	// Zero RequestsPerSecond disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second, RequestsPerSecond: 2, Burst: 3}
}

// Failure describes a statement that could not be fetched
type Failure struct {
	Kind domain.StatementKind `json:"kind"`
	Err  string               `json:"error"`
}

// Fetcher fetches the three statements of an entity concurrently
type Fetcher struct {
	source  Source
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a fetcher over source
func NewFetcher(source Source, cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Fetcher{
		source:  source,
		limiter: limiter,
		timeout: cfg.Timeout,
		logger:  logger.With(slog.String("component", "fetch")),
	}
}

// FetchAll fetches every statement kind. A statement that fails is returned as
// an empty table and listed in the failures; it never aborts the others.
// Only cancellation of ctx makes FetchAll return an error.
func (f *Fetcher) FetchAll(ctx context.Context, code string, provider domain.Provider) (map[domain.StatementKind]domain.RawTable, []Failure, error) {
	kinds := domain.StatementKinds()
	out := make(map[domain.StatementKind]domain.RawTable, len(kinds))

	var mu sync.Mutex
	var failures []Failure

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			raw, err := f.fetchOne(gctx, code, provider, kind)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.WarnContext(ctx, "Statement fetch failed",
					slog.String("code", code),
					slog.String("provider", provider.String()),
					slog.String("statement", string(kind)),
					slog.String("error", err.Error()))
				failures = append(failures, Failure{Kind: kind, Err: err.Error()})
				raw = domain.RawTable{}
			}
			out[kind] = raw
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, failures, err
	}
	return out, failures, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, code string, provider domain.Provider, kind domain.StatementKind) (domain.RawTable, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return domain.RawTable{}, err
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := f.source.Fetch(ctx, code, provider, kind)
	if err != nil {
		return domain.RawTable{}, err
	}
	f.logger.DebugContext(ctx, "Statement fetched",
		slog.String("code", code),
		slog.String("statement", string(kind)),
		slog.Int("rows", len(raw.Rows)),
		slog.Duration("duration", time.Since(start)))
	return raw, nil
}
