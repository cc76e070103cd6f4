package telemetry

import "context"

// NoOp is a Tracer that discards everything. It is the default when no
// OpenTelemetry exporter is configured.
type NoOp struct{}

func (NoOp) StartTrace(_ string, _ TraceOptions) TraceContext {
	return TraceContext{Context: context.Background()}
}
func (NoOp) StartPhase(_ TraceContext, _ string, _ SpanOptions) SpanContext {
	return SpanContext{Context: context.Background()}
}
func (NoOp) RecordGeneration(_ SpanContext, _ GenerationInput) {}
func (NoOp) RecordSkipped(_ SpanContext, _ string, _ string)   {}
func (NoOp) EndPhase(_ SpanContext, _ string)                  {}
func (NoOp) CompleteTrace(_ TraceContext, _ CompleteOptions)   {}
func (NoOp) Shutdown(_ context.Context) error                  { return nil }
