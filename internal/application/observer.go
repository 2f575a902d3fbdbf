package application

import (
	"context"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

// RunObserver receives lifecycle notifications for engine runs.
// Implementations hook tracing or auditing systems into the engine
// without the engine depending on them; the OpenTelemetry observer in
// infrastructure/middleware is the reference implementation.
// All methods must be safe for concurrent use across runs.
type RunObserver interface {
	// RunStarted is called when a run enters the Running state, before
	// dispatch. The returned context is used for the rest of the run,
	// which lets implementations attach spans or baggage.
	RunStarted(ctx context.Context, runID, symbol string, analysts int) context.Context

	// AnalystCompleted is called once per attempted analyst with the
	// outcome of its Analyze call. A nil err means the analyst produced
	// a result; whether that result survived validation and the deadline
	// is reflected in the run's contributor count, not here.
	AnalystCompleted(ctx context.Context, runID, analystID string, elapsed time.Duration, err error)

	// RunCompleted is called when the run reaches a terminal state.
	// res is nil when the run failed before aggregation produced a
	// decision.
	RunCompleted(ctx context.Context, runID string, res *domain.ConsolidatedResult, elapsed time.Duration, err error)
}

// NoopRunObserver is the default observer; it does nothing.
type NoopRunObserver struct{}

var _ RunObserver = NoopRunObserver{}

// RunStarted returns the context unchanged.
func (NoopRunObserver) RunStarted(ctx context.Context, _, _ string, _ int) context.Context {
	return ctx
}

// AnalystCompleted does nothing.
func (NoopRunObserver) AnalystCompleted(context.Context, string, string, time.Duration, error) {}

// RunCompleted does nothing.
func (NoopRunObserver) RunCompleted(context.Context, string, *domain.ConsolidatedResult, time.Duration, error) {
}
