package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finreport/pkg/contracts/domain"
)

const meterName = "finreport.pipeline"

// Metrics holds the pipeline instruments. With the Prometheus exporter they
// appear as finreport_pipeline_runs_total, finreport_unparsable_cells_total and so on.
type Metrics struct {
	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	unparsableCells   metric.Int64Counter
	statementsSkipped metric.Int64Counter
}

// NewMetrics creates the instruments on meter, or on the global meter provider when meter is nil
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	runsTotal, err := meter.Int64Counter(
		"finreport_pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"finreport_pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	unparsableCells, err := meter.Int64Counter(
		"finreport_unparsable_cells_total",
		metric.WithDescription("Provider cells passed through as text because they could not be parsed"),
	)
	if err != nil {
		return nil, err
	}

	statementsSkipped, err := meter.Int64Counter(
		"finreport_statements_skipped_total",
		metric.WithDescription("Statements treated as empty because they could not be mapped"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		unparsableCells:   unparsableCells,
		statementsSkipped: statementsSkipped,
	}, nil
}

func (m *Metrics) recordRun(ctx context.Context, provider domain.Provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider.String()),
		attribute.String("outcome", outcome),
	)
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) recordUnparsable(ctx context.Context, provider domain.Provider, kind domain.StatementKind, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unparsableCells.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("provider", provider.String()),
		attribute.String("statement", string(kind)),
	))
}

func (m *Metrics) recordSkipped(ctx context.Context, provider domain.Provider, kind domain.StatementKind) {
	if m == nil {
		return
	}
	m.statementsSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider.String()),
		attribute.String("statement", string(kind)),
	))
}
