package infrastructure

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finreport/internal/config"
)

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{ServiceName: "svc", TraceExporter: "stdout", Metrics: false})
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.False(t, cfg.EnableMetrics)

	def := OTelConfigFrom(config.TelemetryConfig{Metrics: true})
	assert.Equal(t, ServiceName, def.ServiceName)
	assert.Equal(t, "none", def.TraceExporter)
}

func TestInitializeOTel_Metrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Tracer)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.CacheHits.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "finreport_cache_hits_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestInitializeOTel_Spans(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "t", TraceExporter: "none"}, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.PrometheusHTTP)
	ctx, span := providers.Tracer.Start(context.Background(), "op")
	defer span.End()
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestInitializeOTel_UnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin"}, nil)
	assert.Error(t, err)
}

func TestCreateBusinessMetrics_GlobalMeter(t *testing.T) {
	metrics, err := CreateBusinessMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.FetchFailures)
}
