// Package telemetry traces a session's phases and model calls and
// exports Prometheus metrics over them.
package telemetry

import "context"

// Tracer tracks the lifecycle of a session through phases, recording
// model invocations and skipped roles. Trace hierarchy:
//
//	Session (Trace)
//	  └── Phase (Span): planning, executing, auditing, recovery, testing...
//	        └── ModelAttempt (Generation): architect/executor/auditor/consultant call
type Tracer interface {
	StartTrace(sessionID string, opts TraceOptions) TraceContext
	StartPhase(trace TraceContext, phase string, opts SpanOptions) SpanContext
	RecordGeneration(span SpanContext, gen GenerationInput)
	RecordSkipped(span SpanContext, role string, reason string)
	EndPhase(span SpanContext, status string)
	CompleteTrace(trace TraceContext, opts CompleteOptions)
	Shutdown(ctx context.Context) error
}

// TraceContext identifies one session's trace.
type TraceContext struct {
	TraceID string
	context.Context
}

// SpanContext identifies one phase's span within a trace.
type SpanContext struct {
	PhaseName string
	context.Context
}

// TraceOptions configures a new trace.
type TraceOptions struct {
	Task string
}

// SpanOptions configures a new phase span.
type SpanOptions struct {
	Iteration int
}

// GenerationInput describes one model call to record on a phase span.
type GenerationInput struct {
	Role       string // architect, executor, auditor, consultant
	Model      string
	DurationMs int64
	Status     string // success, an adapter ErrorKind string, or error
}

// CompleteOptions configures trace completion.
type CompleteOptions struct {
	Status string // completed, failed, rejected
}
