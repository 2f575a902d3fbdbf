package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// DefaultShutdownGrace bounds how long Shutdown waits for in-flight runs
// to drain before cancelling them.
const DefaultShutdownGrace = 5 * time.Second

// Engine coordinates the full consensus pipeline: roster snapshot,
// concurrent dispatch, weighted aggregation, and report composition.
// It is safe for concurrent use; any number of runs may be in flight
// while analysts are registered or re-weighted.
//
// Failure policy: individual analyst failures and batch timeouts are
// absorbed during dispatch and surface only as a reduced contributor
// count. A run fails as a whole only when the request carries no
// subject, when zero analysts contribute a valid result, or when the
// report cannot be rendered.
type Engine struct {
	roster     *Roster
	dispatcher *Dispatcher
	aggregator *Aggregator
	composer   ports.ReportComposer

	logger   *slog.Logger
	metrics  ports.MetricsCollector
	observer RunObserver

	grace time.Duration

	mu        sync.Mutex
	accepting bool
	active    map[string]context.CancelFunc
	wg        sync.WaitGroup
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithEngineLogger sets the structured logger for the engine and its
// dispatcher. Defaults to slog.Default().
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEngineMetrics sets the metrics collector. Metrics are optional;
// without a collector the engine simply records nothing.
func WithEngineMetrics(metrics ports.MetricsCollector) EngineOption {
	return func(e *Engine) { e.metrics = metrics }
}

// WithEngineObserver sets the run observer used for tracing run and
// analyst lifecycles. Defaults to NoopRunObserver.
func WithEngineObserver(observer RunObserver) EngineOption {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewEngine creates an engine from the given configuration and report
// composer. Zero config fields fall back to the package defaults
// (DefaultMaxConcurrency, DefaultDispatchTimeout, DefaultShutdownGrace).
func NewEngine(cfg EngineConfig, composer ports.ReportComposer, opts ...EngineOption) (*Engine, error) {
	if composer == nil {
		return nil, errors.New("engine requires a report composer")
	}

	e := &Engine{
		roster:    NewRoster(),
		composer:  composer,
		logger:    slog.Default(),
		observer:  NoopRunObserver{},
		grace:     DefaultShutdownGrace,
		accepting: true,
		active:    make(map[string]context.CancelFunc),
	}
	if cfg.ShutdownGraceSeconds > 0 {
		e.grace = time.Duration(cfg.ShutdownGraceSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(e)
	}

	e.dispatcher = NewDispatcher(
		cfg.MaxConcurrency,
		time.Duration(cfg.TimeoutSeconds)*time.Second,
		WithDispatcherLogger(e.logger),
		WithDispatcherMetrics(e.metrics),
		WithDispatcherObserver(e.observer),
	)
	e.aggregator = NewAggregator()
	return e, nil
}

// RegisterAnalyst adds or replaces an analyst on the roster. New runs
// pick it up; runs already in flight keep their snapshot.
func (e *Engine) RegisterAnalyst(id string, analyst ports.Analyst) error {
	return e.roster.Register(id, analyst)
}

// DeregisterAnalyst removes an analyst from the roster. It reports
// whether the analyst was registered.
func (e *Engine) DeregisterAnalyst(id string) bool { return e.roster.Deregister(id) }

// SetWeight updates an analyst's static weight. Weights outside [0, 1]
// are rejected with ErrWeightOutOfRange and leave the roster unchanged.
func (e *Engine) SetWeight(id string, weight float64) error { return e.roster.SetWeight(id, weight) }

// Weight returns the effective weight for an analyst ID.
func (e *Engine) Weight(id string) float64 { return e.roster.Weight(id) }

// Analysts returns the registered analyst IDs in lexicographic order.
func (e *Engine) Analysts() []string { return e.roster.IDs() }

// Run executes one full analysis: snapshot the roster, dispatch the
// request to every registered analyst, aggregate the surviving results
// and render the report. The returned RunResult carries the terminal
// run state even when err is non-nil.
//
// Run returns domain.ErrEngineClosed after Shutdown, domain.ErrNoSubject
// for requests without a symbol, and domain.ErrNoResults when no analyst
// contributed a valid result before the deadline.
func (e *Engine) Run(ctx context.Context, req domain.AnalysisRequest) (domain.RunResult, error) {
	e.mu.Lock()
	if !e.accepting {
		e.mu.Unlock()
		return domain.RunResult{}, domain.ErrEngineClosed
	}
	run := domain.NewRun(req.Symbol)
	if err := run.Start(); err != nil {
		e.mu.Unlock()
		return domain.RunResult{}, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.active[run.ID] = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.active, run.ID)
		e.mu.Unlock()
		e.wg.Done()
		e.recordActiveRuns()
	}()
	e.recordActiveRuns()

	start := time.Now()
	snapshot := e.roster.Snapshot()
	runCtx = e.observer.RunStarted(runCtx, run.ID, req.Symbol, len(snapshot))

	if err := req.Validate(); err != nil {
		return e.failRun(runCtx, run, start, fmt.Errorf("request rejected: %w", err))
	}

	e.logger.Info("engine: run started",
		"run_id", run.ID,
		"symbol", req.Symbol,
		"analysts", len(snapshot),
	)

	set := e.dispatcher.Dispatch(runCtx, run.ID, req, snapshot)

	consolidated, err := e.aggregator.Aggregate(req.Symbol, snapshot, set)
	if err != nil {
		return e.failRun(runCtx, run, start, err)
	}

	report, err := e.composer.Compose(consolidated, set)
	if err != nil {
		return e.failRun(runCtx, run, start, fmt.Errorf("composing report: %w", err))
	}

	if err := run.Finish(); err != nil {
		return e.failRun(runCtx, run, start, err)
	}

	elapsed := time.Since(start)
	e.recordRun(run.State, elapsed, &consolidated)
	e.observer.RunCompleted(runCtx, run.ID, &consolidated, elapsed, nil)
	e.logger.Info("engine: run finished",
		"run_id", run.ID,
		"symbol", req.Symbol,
		"recommendation", consolidated.Recommendation,
		"confidence", consolidated.Confidence,
		"contributors", consolidated.Contributors,
		"elapsed", elapsed,
	)

	return domain.RunResult{
		RunID:        run.ID,
		Symbol:       req.Symbol,
		State:        run.State,
		Consolidated: &consolidated,
		Report:       report,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}, nil
}

// failRun moves the run to its terminal error state and normalizes the
// error returned to the caller.
func (e *Engine) failRun(ctx context.Context, run *domain.Run, start time.Time, cause error) (domain.RunResult, error) {
	if err := run.Fail(); err != nil {
		e.logger.Warn("engine: run already terminal", "run_id", run.ID, "error", err)
	}
	elapsed := time.Since(start)
	e.recordRun(run.State, elapsed, nil)
	e.observer.RunCompleted(ctx, run.ID, nil, elapsed, cause)
	e.logger.Warn("engine: run failed",
		"run_id", run.ID,
		"symbol", run.Symbol,
		"elapsed", elapsed,
		"error", cause,
	)
	return domain.RunResult{
		RunID:       run.ID,
		Symbol:      run.Symbol,
		State:       run.State,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}, fmt.Errorf("run %s: %w", run.ID, cause)
}

// Shutdown stops the engine from accepting new runs and waits for
// in-flight runs to drain. Runs still active when the grace period (or
// ctx) expires are cancelled and their partial results honored by their
// own callers. Repeated calls are safe; after a clean drain every call
// returns nil.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.accepting = false
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(e.grace)
	defer timer.Stop()

	select {
	case <-done:
		e.logger.Info("engine: shutdown complete")
		return nil
	case <-ctx.Done():
	case <-timer.C:
	}

	e.cancelActive()
	<-done

	e.logger.Warn("engine: shutdown forced, active runs cancelled", "grace", e.grace)
	return fmt.Errorf("engine shutdown: %w", domain.ErrShutdownTimeout)
}

// Accepting reports whether the engine admits new runs.
func (e *Engine) Accepting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accepting
}

// EngineStatus is a point-in-time health snapshot.
type EngineStatus struct {
	// Accepting reports whether new runs are admitted.
	Accepting bool `json:"accepting"`

	// ActiveRuns is the number of runs currently in flight.
	ActiveRuns int `json:"active_runs"`

	// Analysts is the current roster size.
	Analysts int `json:"analysts"`
}

// Status returns the engine's health snapshot.
func (e *Engine) Status() EngineStatus {
	e.mu.Lock()
	accepting, active := e.accepting, len(e.active)
	e.mu.Unlock()
	return EngineStatus{
		Accepting:  accepting,
		ActiveRuns: active,
		Analysts:   e.roster.Len(),
	}
}

func (e *Engine) cancelActive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.active {
		cancel()
	}
}

func (e *Engine) recordActiveRuns() {
	if e.metrics == nil {
		return
	}
	e.mu.Lock()
	n := len(e.active)
	e.mu.Unlock()
	e.metrics.RecordGauge("quorum_active_runs", float64(n), nil)
}

func (e *Engine) recordRun(state domain.RunState, elapsed time.Duration, consolidated *domain.ConsolidatedResult) {
	if e.metrics == nil {
		return
	}
	labels := map[string]string{"status": string(state)}
	e.metrics.RecordCounter("quorum_runs_total", 1, labels)
	e.metrics.RecordLatency("engine_run", elapsed, labels)
	if consolidated != nil {
		e.metrics.RecordHistogram("quorum_contributors", float64(consolidated.Contributors), nil)
		e.metrics.RecordHistogram("quorum_weighted_confidence", consolidated.Confidence, nil)
	}
}
