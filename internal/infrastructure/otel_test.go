package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestDefaultOTelConfig(t *testing.T) {
	cfg := DefaultOTelConfig()

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, 1.0, cfg.SampleRatio)
}

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := &OTelConfig{
		ServiceName:    "test",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
		EnableMetrics:  false,
		EnableTracing:  false,
	}

	providers, err := InitializeOTel(cfg, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := &OTelConfig{
		ServiceName:    "test",
		ServiceVersion: "0.0.1",
		TraceExporter:  "jaeger",
		EnableTracing:  true,
	}

	_, err := InitializeOTel(cfg, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestCreateBusinessMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.HTTPRequestDuration)
	assert.NotNil(t, metrics.ReportRunsTotal)
	assert.NotNil(t, metrics.ReportRunDuration)
	assert.NotNil(t, metrics.RecordsProcessedTotal)
	assert.NotNil(t, metrics.DuplicatesFlaggedTotal)
	assert.NotNil(t, metrics.SelfExchangesTotal)
	assert.NotNil(t, metrics.ExportDuration)
	assert.NotNil(t, metrics.WarehouseUploadsTotal)
	assert.NotNil(t, metrics.SystemUptime)
}

func TestRecordReportRunMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	// Success and failure paths both record without panicking.
	RecordReportRunMetrics(ctx, metrics, "upload", 120*time.Millisecond, 42, nil)
	RecordReportRunMetrics(ctx, metrics, "upload", 5*time.Millisecond, 0, errors.New("boom"))

	// Nil metrics are a no-op.
	RecordReportRunMetrics(ctx, nil, "upload", time.Millisecond, 1, nil)
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}

func TestAddSpanEvent_NoRecordingSpan(t *testing.T) {
	// No-op without a recording span.
	AddSpanEvent(context.Background(), "event", map[string]interface{}{"k": "v"})
	SetSpanAttributes(context.Background(), map[string]interface{}{"n": 1})
	RecordError(context.Background(), errors.New("ignored"))
}
