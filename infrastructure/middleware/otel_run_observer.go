package middleware

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-quorum/internal/application"
	"github.com/ahrav/go-quorum/internal/domain"
)

var _ application.RunObserver = (*OTelRunObserver)(nil)

// OTelRunObserver implements run observability using OpenTelemetry
// tracing. It opens one span per run, records each analyst completion
// as a span event, and closes the span with the consolidated outcome.
//
// Span handles are keyed by run ID in a sync.Map, so concurrent runs
// never share state.
type OTelRunObserver struct {
	tracer trace.Tracer
	spans  sync.Map // run ID -> trace.Span
}

// NewOTelRunObserver creates an observer that traces engine runs.
func NewOTelRunObserver() *OTelRunObserver {
	return &OTelRunObserver{tracer: otel.Tracer("quorum-engine")}
}

// RunStarted opens the run span and returns a context carrying it, so
// analyst-level spans opened downstream nest under the run.
func (o *OTelRunObserver) RunStarted(ctx context.Context, runID, symbol string, analysts int) context.Context {
	spanCtx, span := o.tracer.Start(ctx, "Engine.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.symbol", symbol),
		attribute.Int("run.analysts", analysts),
	))
	o.spans.Store(runID, span)
	return spanCtx
}

// AnalystCompleted records one analyst's completion as an event on the
// run span. Failures carry the error text; the span status is left to
// RunCompleted because one lost contribution does not fail a run.
func (o *OTelRunObserver) AnalystCompleted(ctx context.Context, runID, analystID string, elapsed time.Duration, err error) {
	value, ok := o.spans.Load(runID)
	if !ok {
		return
	}
	span := value.(trace.Span)

	attrs := []attribute.KeyValue{
		attribute.String("analyst.id", analystID),
		attribute.Int64("analyst.elapsed_ms", elapsed.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("analyst.error", err.Error()))
		span.AddEvent("analyst.failed", trace.WithAttributes(attrs...))
		return
	}
	span.AddEvent("analyst.completed", trace.WithAttributes(attrs...))
}

// RunCompleted sets the consolidated outcome on the run span, marks its
// status, and ends it. The span handle is released; completions for
// unknown run IDs are ignored.
func (o *OTelRunObserver) RunCompleted(ctx context.Context, runID string, res *domain.ConsolidatedResult, elapsed time.Duration, err error) {
	value, ok := o.spans.LoadAndDelete(runID)
	if !ok {
		return
	}
	span := value.(trace.Span)
	defer span.End()

	span.SetAttributes(attribute.Int64("run.elapsed_ms", elapsed.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if res != nil {
		span.SetAttributes(
			attribute.String("run.recommendation", res.Recommendation.String()),
			attribute.Float64("run.confidence", res.Confidence),
			attribute.Int("run.contributors", res.Contributors),
		)
	}
	span.SetStatus(codes.Ok, "consensus reached")
}
