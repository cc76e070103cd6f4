package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestOTelTracer_RecordsSessionLifecycle(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := NewOTelTracer(&buf, "orchestra-test")
	if err != nil {
		t.Fatalf("NewOTelTracer: %v", err)
	}

	trace := tracer.StartTrace("sess-1", TraceOptions{Task: "add a feature"})
	if trace.TraceID == "" {
		t.Fatal("expected a non-empty trace id")
	}
	span := tracer.StartPhase(trace, "planning", SpanOptions{Iteration: 0})
	tracer.RecordGeneration(span, GenerationInput{Role: "architect", Model: "anthropic", DurationMs: 10, Status: "success"})
	tracer.EndPhase(span, "ok")
	tracer.CompleteTrace(trace, CompleteOptions{Status: "completed"})

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "planning") {
		t.Errorf("expected exported span output to mention the phase name, got: %s", buf.String())
	}
}

func TestNoOp_NeverPanics(t *testing.T) {
	var tr Tracer = NoOp{}
	trace := tr.StartTrace("sess-1", TraceOptions{Task: "x"})
	span := tr.StartPhase(trace, "planning", SpanOptions{})
	tr.RecordGeneration(span, GenerationInput{})
	tr.RecordSkipped(span, "consultant", "not needed")
	tr.EndPhase(span, "ok")
	tr.CompleteTrace(trace, CompleteOptions{Status: "completed"})
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("NoOp.Shutdown should never error, got %v", err)
	}
}

func TestMetrics_ExposesPrometheusFormat(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordModelAttempt(ctx, "executor", "success")
	m.RecordFallbackRotation(ctx)
	m.RecordPhaseDuration(ctx, "executing", 1.5)
	m.RecordAuditIteration(ctx)

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
