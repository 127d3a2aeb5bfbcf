// Package pipeline runs the statement normalization and derived-metrics
// stages for one entity and provider.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"finreport/internal/derive"
	apperrors "finreport/internal/errors"
	"finreport/internal/mapping"
	"finreport/internal/normalize"
	"finreport/pkg/contracts/domain"
)

const tracerName = "finreport.pipeline"

// Input is the raw data of one entity from one provider. A statement that
// failed to fetch is an empty table or absent from Raw.
type Input struct {
	Code     string
	Provider domain.Provider
	Raw      map[domain.StatementKind]domain.RawTable
}

// Pipeline turns raw statements into the canonical and derived report tables.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	book      *mapping.Book
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *Metrics
	yoyOffset int
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracerProvider sets where spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithMetrics records run metrics
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithYoYOffset sets how many rows back the YoY tables compare against
func WithYoYOffset(offset int) Option {
	return func(p *Pipeline) {
		if offset > 0 {
			p.yoyOffset = offset
		}
	}
}

// New creates a pipeline over a mapping book
func New(book *mapping.Book, opts ...Option) (*Pipeline, error) {
	if book == nil {
		return nil, apperrors.NewConfigError("pipeline requires a mapping book", nil)
	}
	p := &Pipeline{
		book:      book,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		yoyOffset: derive.QuarterlyOffset,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"))
	return p, nil
}

// Book returns the mapping book the pipeline uses
func (p *Pipeline) Book() *mapping.Book {
	return p.book
}

// Run executes every stage. It fails only when the provider is unknown, the
// mapping is ambiguous, or no statement has any row (ErrNoData).
func (p *Pipeline) Run(ctx context.Context, in Input) (res *Result, err error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.String("pipeline.code", in.Code),
			attribute.String("pipeline.provider", in.Provider.String()),
		),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			if errors.Is(err, apperrors.ErrNoData) {
				outcome = "no_data"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "pipeline completed")
		}
		p.metrics.recordRun(ctx, in.Provider, outcome, time.Since(start))
		span.End()
	}()

	logger := p.logger.With(
		slog.String("run_id", runID),
		slog.String("code", in.Code),
		slog.String("provider", in.Provider.String()),
	)

	if !in.Provider.Valid() {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown provider %q", in.Provider))
	}

	diag := Diagnostics{
		RunID:      runID,
		Skipped:    make(map[domain.StatementKind]string),
		Unparsable: make(map[domain.StatementKind]map[string]int),
	}

	statements, err := p.normalizeAll(ctx, logger, in, &diag)
	if err != nil {
		return nil, err
	}

	empty := true
	for _, t := range statements {
		if !t.Empty() {
			empty = false
			break
		}
	}
	if empty {
		logger.WarnContext(ctx, "No statement data available")
		return nil, apperrors.NewNoDataError(in.Code, in.Provider.String())
	}

	tables := p.deriveReports(ctx, statements)

	res = NewResult(in.Code, in.Provider, tables)
	diag.Duration = time.Since(start)
	res.Diagnostics = diag

	logger.InfoContext(ctx, "Pipeline completed",
		slog.Int("income_rows", statements[domain.StatementIncome].Len()),
		slog.Int("balance_rows", statements[domain.StatementBalance].Len()),
		slog.Int("cash_rows", statements[domain.StatementCashFlow].Len()),
		slog.Int("unparsable_cells", diag.UnparsableTotal()),
		slog.Duration("duration", diag.Duration))

	return res, nil
}

// normalizeAll maps and coerces every statement. A statement without a
// Reporting Period column is logged and treated as empty.
func (p *Pipeline) normalizeAll(ctx context.Context, logger *slog.Logger, in Input, diag *Diagnostics) (map[domain.StatementKind]domain.Table, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.normalize")
	defer span.End()

	out := make(map[domain.StatementKind]domain.Table, len(domain.StatementKinds()))
	for _, kind := range domain.StatementKinds() {
		sheet, ok := p.book.Sheet(kind)
		if !ok {
			err := apperrors.NewMappingError(fmt.Sprintf("mapping sheet %s missing", kind.SheetName()), nil)
			span.RecordError(err)
			return nil, err
		}

		table, stats, err := normalize.Statement(in.Raw[kind], sheet, in.Provider)
		switch {
		case errors.Is(err, apperrors.ErrMissingPeriod):
			logger.WarnContext(ctx, "Statement skipped",
				slog.String("statement", string(kind)),
				slog.String("error", err.Error()))
			diag.Skipped[kind] = err.Error()
			p.metrics.recordSkipped(ctx, in.Provider, kind)
			table = domain.Table{}
		case err != nil:
			span.RecordError(err)
			return nil, err
		}

		if n := stats.Total(); n > 0 {
			diag.Unparsable[kind] = stats.Unparsable
			p.metrics.recordUnparsable(ctx, in.Provider, kind, n)
		}
		out[kind] = table.SortByPeriodDesc()

		span.SetAttributes(attribute.Int("pipeline."+string(kind)+"_rows", table.Len()))
	}
	return out, nil
}

// deriveReports computes the report tables from normalized statements
func (p *Pipeline) deriveReports(ctx context.Context, statements map[domain.StatementKind]domain.Table) map[domain.ReportName]domain.Table {
	_, span := p.tracer.Start(ctx, "pipeline.derive")
	defer span.End()

	income := derive.IncomeKeyMetrics(statements[domain.StatementIncome])
	incomeQuarter := derive.SingleQuarter(income)

	// YoY runs before the ratios are added so ratios never get a growth column
	incomeYoY := derive.YoYTable(income, p.yoyOffset)
	incomeQuarterYoY := derive.YoYTable(incomeQuarter, p.yoyOffset)

	income = derive.IncomeRatios(income)
	incomeQuarter = derive.IncomeRatios(incomeQuarter)

	balance := statements[domain.StatementBalance]
	cash := statements[domain.StatementCashFlow]

	tables := map[domain.ReportName]domain.Table{
		domain.ReportBalanceByReport:    balance,
		domain.ReportIncomeByReport:     income,
		domain.ReportIncomeByQuarter:    incomeQuarter,
		domain.ReportIncomeYoYByReport:  incomeYoY,
		domain.ReportIncomeYoYByQuarter: incomeQuarterYoY,
		domain.ReportCashFlowByReport:   cash,
		domain.ReportCashFlowByQuarter:  derive.SingleQuarter(cash),
		domain.ReportCross:              derive.Cross(income, balance, cash),
	}
	span.SetAttributes(attribute.Int("pipeline.cross_rows", tables[domain.ReportCross].Len()))
	return tables
}
