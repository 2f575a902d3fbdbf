package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Dispatch bounds applied when the configuration leaves them unset.
const (
	// DefaultMaxConcurrency is the default size of the dispatch pool.
	DefaultMaxConcurrency = 5

	// DefaultDispatchTimeout is the default global deadline shared by a
	// whole dispatch batch.
	DefaultDispatchTimeout = 30 * time.Second
)

// Dispatcher executes every analyst in a roster snapshot concurrently
// against one request, bounded by a fixed-size pool and a single global
// timeout shared by the whole batch; there is no per-analyst deadline.
//
// Failure isolation is per analyst: an error, a panic, or an invalid
// result costs that analyst its contribution and nothing else. The
// returned result set is frozen at the deadline, so stragglers that
// ignore cancellation and complete late are discarded rather than
// appended.
type Dispatcher struct {
	maxConcurrency int
	timeout        time.Duration
	logger         *slog.Logger
	metrics        ports.MetricsCollector
	observer       RunObserver
}

// DispatcherOption configures optional dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger used for failure reporting.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDispatcherMetrics sets the metrics collector for per-analyst
// latency and failure counters.
func WithDispatcherMetrics(metrics ports.MetricsCollector) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = metrics }
}

// WithDispatcherObserver sets the observer notified of per-analyst
// completions.
func WithDispatcherObserver(observer RunObserver) DispatcherOption {
	return func(d *Dispatcher) {
		if observer != nil {
			d.observer = observer
		}
	}
}

// NewDispatcher creates a dispatcher with the given pool size and batch
// timeout. Non-positive values fall back to the defaults.
func NewDispatcher(maxConcurrency int, timeout time.Duration, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		maxConcurrency: maxConcurrency,
		timeout:        timeout,
		logger:         slog.Default(),
		observer:       NoopRunObserver{},
	}
	if d.maxConcurrency <= 0 {
		d.maxConcurrency = DefaultMaxConcurrency
	}
	if d.timeout <= 0 {
		d.timeout = DefaultDispatchTimeout
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Timeout returns the batch deadline the dispatcher applies.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Dispatch fans the request out to every analyst in the snapshot and
// returns the frozen set of valid results that made the deadline.
//
// The set comes back as-is even when empty; raising an error on empty
// input is the aggregation step's job, not the dispatcher's. Excess
// analysts beyond the pool size queue on the semaphore instead of
// spawning unbounded concurrency, and queued tasks abandon cleanly when
// the deadline fires before they start.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, req domain.AnalysisRequest, snapshot []RegisteredAnalyst) *domain.PartialResultSet {
	order := make([]string, len(snapshot))
	for i, ra := range snapshot {
		order[i] = ra.ID
	}
	set := domain.NewPartialResultSet(order)

	if len(snapshot) == 0 {
		set.Freeze()
		return set
	}

	// One deadline for the whole batch. The deferred cancel releases the
	// timer and signals stragglers on every exit path.
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	semaphore := make(chan struct{}, d.maxConcurrency)
	var wg sync.WaitGroup

	for _, ra := range snapshot {
		wg.Add(1)
		go func(ra RegisteredAnalyst) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-runCtx.Done():
				// Deadline fired while queued; the task never started.
				d.countFailure(ra.ID, "cancelled")
				return
			}

			d.runAnalyst(runCtx, runID, req, ra, set)
		}(ra)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		d.logger.Warn("dispatcher: batch deadline reached",
			"run", runID,
			"timeout", d.timeout,
			"collected", set.Len(),
			"expected", len(snapshot))
		if d.metrics != nil {
			d.metrics.RecordCounter("quorum_dispatch_timeouts_total", 1, nil)
		}
	}

	// The freeze is the timeout boundary: anything still outstanding
	// keeps the cancellation signal and its eventual output is dropped.
	set.Freeze()
	return set
}

// runAnalyst invokes a single analyst with panic containment and records
// the outcome. Each invocation owns exactly one key of the result set,
// which is what makes the concurrent writes contention-free.
func (d *Dispatcher) runAnalyst(ctx context.Context, runID string, req domain.AnalysisRequest, ra RegisteredAnalyst, set *domain.PartialResultSet) {
	start := time.Now()

	var (
		res domain.AnalysisResult
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("analyst %s panicked: %v", ra.ID, r)
			}
		}()
		res, err = ra.Analyst.Analyze(ctx, req)
	}()

	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordLatency("analyst_analyze", elapsed, map[string]string{"analyst": ra.ID})
	}
	d.observer.AnalystCompleted(ctx, runID, ra.ID, elapsed, err)

	if err != nil {
		d.countFailure(ra.ID, "error")
		d.logger.Warn("dispatcher: analyst failed",
			"run", runID, "analyst", ra.ID, "elapsed", elapsed, "error", err)
		return
	}

	if verr := res.Validate(); verr != nil {
		d.countFailure(ra.ID, "invalid")
		d.logger.Warn("dispatcher: analyst returned invalid result",
			"run", runID, "analyst", ra.ID, "elapsed", elapsed, "error", verr)
		return
	}

	if !set.Put(ra.ID, res) {
		// Completed after the batch froze; the result is discarded.
		d.countFailure(ra.ID, "late")
		d.logger.Warn("dispatcher: late result discarded",
			"run", runID, "analyst", ra.ID, "elapsed", elapsed)
	}
}

func (d *Dispatcher) countFailure(analystID, reason string) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordCounter("quorum_analyst_failures_total", 1,
		map[string]string{"analyst": analystID, "reason": reason})
}
