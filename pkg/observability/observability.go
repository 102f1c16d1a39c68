// Package observability instruments the dispatch path with OpenTelemetry:
// one span per stage (classify, plan, authorize, execute) and RED-style
// counters per terminal status. Only the OTel API is used here; installing
// an SDK and exporter is the embedding process's choice, and without one
// everything below is a no-op.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/ai-Ev1lC0rP/proxmox-ai"

// Telemetry bundles the tracer and counters the dispatcher reports into.
type Telemetry struct {
	tracer        trace.Tracer
	requests      metric.Int64Counter
	decisions     metric.Int64Counter
	fallbackCount metric.Int64Counter
}

// New creates a Telemetry over the global OTel providers.
func New() *Telemetry {
	meter := otel.Meter(scope)

	requests, _ := meter.Int64Counter("dispatch.requests",
		metric.WithDescription("instructions handled, by terminal status"))
	decisions, _ := meter.Int64Counter("gate.decisions",
		metric.WithDescription("execution gate verdicts, by verdict and risk"))
	fallbacks, _ := meter.Int64Counter("classify.fallbacks",
		metric.WithDescription("classifications served by the keyword fallback"))

	return &Telemetry{
		tracer:        otel.Tracer(scope),
		requests:      requests,
		decisions:     decisions,
		fallbackCount: fallbacks,
	}
}

// StartStage opens a span for one dispatch stage.
func (t *Telemetry) StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "dispatch."+stage)
}

// EndStage closes a stage span, recording err if the stage failed.
func (t *Telemetry) EndStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RecordResult counts one handled instruction.
func (t *Telemetry) RecordResult(ctx context.Context, status string) {
	t.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordDecision counts one gate verdict.
func (t *Telemetry) RecordDecision(ctx context.Context, verdict, risk string) {
	t.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verdict", verdict),
		attribute.String("risk", risk),
	))
}

// RecordFallback counts one keyword-fallback classification.
func (t *Telemetry) RecordFallback(ctx context.Context) {
	t.fallbackCount.Add(ctx, 1)
}
