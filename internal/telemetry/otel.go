package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelTracer records session traces as OpenTelemetry spans. By default
// spans are written to w as they complete; point w at a network-backed
// writer (or swap the exporter) to ship to a real collector.
type OTelTracer struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewOTelTracer builds an OTelTracer exporting spans as they end to w.
func NewOTelTracer(w io.Writer, serviceName string) (*OTelTracer, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return &OTelTracer{
		provider: provider,
		tracer:   provider.Tracer("orchestra/kernel"),
	}, nil
}

// NewOTLPTracer builds an OTelTracer shipping spans to a remote collector
// over gRPC at endpoint (e.g. "collector.internal:4317"), for deployments
// that want a durable trace backend instead of the stdout exporter.
func NewOTLPTracer(ctx context.Context, endpoint, serviceName string) (*OTelTracer, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return &OTelTracer{
		provider: provider,
		tracer:   provider.Tracer("orchestra/kernel"),
	}, nil
}

func (t *OTelTracer) StartTrace(sessionID string, opts TraceOptions) TraceContext {
	ctx, span := t.tracer.Start(context.Background(), "session",
		oteltrace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.task", opts.Task),
		))
	return TraceContext{TraceID: span.SpanContext().TraceID().String(), Context: ctx}
}

func (t *OTelTracer) StartPhase(trace TraceContext, phase string, opts SpanOptions) SpanContext {
	ctx, span := t.tracer.Start(trace.Context, phase,
		oteltrace.WithAttributes(attribute.Int("iteration", opts.Iteration)))
	_ = span
	return SpanContext{PhaseName: phase, Context: ctx}
}

func (t *OTelTracer) RecordGeneration(span SpanContext, gen GenerationInput) {
	s := oteltrace.SpanFromContext(span.Context)
	s.AddEvent("generation", oteltrace.WithAttributes(
		attribute.String("role", gen.Role),
		attribute.String("model", gen.Model),
		attribute.Int64("duration_ms", gen.DurationMs),
		attribute.String("status", gen.Status),
	))
}

func (t *OTelTracer) RecordSkipped(span SpanContext, role string, reason string) {
	s := oteltrace.SpanFromContext(span.Context)
	s.AddEvent("skipped", oteltrace.WithAttributes(
		attribute.String("role", role),
		attribute.String("reason", reason),
	))
}

func (t *OTelTracer) EndPhase(span SpanContext, status string) {
	s := oteltrace.SpanFromContext(span.Context)
	s.SetAttributes(attribute.String("status", status))
	s.End()
}

func (t *OTelTracer) CompleteTrace(trace TraceContext, opts CompleteOptions) {
	s := oteltrace.SpanFromContext(trace.Context)
	s.SetAttributes(attribute.String("status", opts.Status))
	s.End()
}

func (t *OTelTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
