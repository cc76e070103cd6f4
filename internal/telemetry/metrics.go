package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics exposes kernel counters and histograms over a Prometheus
// registry via the OpenTelemetry metrics SDK's Prometheus bridge, so the
// same instruments can later be re-pointed at an OTLP collector just by
// swapping the reader.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	modelAttempts   metric.Int64Counter
	fallbackRotate  metric.Int64Counter
	phaseDuration   metric.Float64Histogram
	auditIterations metric.Int64Counter
}

// NewMetrics builds a Metrics instance with its own Prometheus registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return newMetrics(registry, provider)
}

// NewOTLPMetrics builds a Metrics instance that pushes to a remote
// collector at endpoint instead of exposing a local Prometheus registry.
// Handler() still serves an (empty) local registry; scrape the collector
// directly in this mode.
func NewOTLPMetrics(ctx context.Context, endpoint string) (*Metrics, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exporter)
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return newMetrics(prometheus.NewRegistry(), provider)
}

func newMetrics(registry *prometheus.Registry, provider *sdkmetric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("orchestra/kernel")

	modelAttempts, err := meter.Int64Counter("orchestra_model_attempts_total",
		metric.WithDescription("model calls made per role"))
	if err != nil {
		return nil, err
	}
	fallbackRotate, err := meter.Int64Counter("orchestra_fallback_rotations_total",
		metric.WithDescription("adapter chain cursor rotations"))
	if err != nil {
		return nil, err
	}
	phaseDuration, err := meter.Float64Histogram("orchestra_phase_duration_seconds",
		metric.WithDescription("wall-clock duration of each kernel phase"))
	if err != nil {
		return nil, err
	}
	auditIterations, err := meter.Int64Counter("orchestra_audit_iterations_total",
		metric.WithDescription("audit-loop iterations across all sessions"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registry:        registry,
		provider:        provider,
		modelAttempts:   modelAttempts,
		fallbackRotate:  fallbackRotate,
		phaseDuration:   phaseDuration,
		auditIterations: auditIterations,
	}, nil
}

func (m *Metrics) RecordModelAttempt(ctx context.Context, role, status string) {
	m.modelAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordFallbackRotation(ctx context.Context) {
	m.fallbackRotate.Add(ctx, 1)
}

func (m *Metrics) RecordPhaseDuration(ctx context.Context, phase string, seconds float64) {
	m.phaseDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("phase", phase)))
}

func (m *Metrics) RecordAuditIteration(ctx context.Context) {
	m.auditIterations.Add(ctx, 1)
}

// Handler returns an http.Handler serving this Metrics' registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
