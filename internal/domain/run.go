package domain

import (
	"fmt"
	"time"
)

// RunState is the lifecycle state of a single engine run.
type RunState string

const (
	// RunStateIdle is the state of a freshly created run, before the
	// engine accepts it.
	RunStateIdle RunState = "idle"

	// RunStateRunning covers dispatch, aggregation and report
	// composition.
	RunStateRunning RunState = "running"

	// RunStateFinished is the terminal success state.
	RunStateFinished RunState = "finished"

	// RunStateError is the terminal failure state.
	RunStateError RunState = "error"
)

// Run tracks one analysis invocation through the
// Idle -> Running -> {Finished, Error} lifecycle. Terminal states are not
// re-entrant; a new request requires a fresh Run. A Run is driven by
// exactly one goroutine and is not safe for concurrent use.
type Run struct {
	// ID uniquely identifies the run in logs and traces.
	ID string `json:"id"`

	// Symbol is the subject under analysis.
	Symbol string `json:"symbol"`

	// State is the current lifecycle state.
	State RunState `json:"state"`

	// StartedAt records when the run entered RunStateRunning.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt records when the run reached a terminal state.
	CompletedAt time.Time `json:"completed_at"`
}

// NewRun creates an Idle run for the given subject. Run IDs embed the
// symbol and the creation time in nanoseconds, which is unique enough for
// log and trace correlation without an external ID scheme.
func NewRun(symbol string) *Run {
	return &Run{
		ID:     fmt.Sprintf("%s-%d", symbol, time.Now().UnixNano()),
		Symbol: symbol,
		State:  RunStateIdle,
	}
}

// Start moves the run from Idle to Running.
func (r *Run) Start() error {
	if r.State != RunStateIdle {
		return &StateTransitionError{RunID: r.ID, From: r.State, To: RunStateRunning}
	}
	r.State = RunStateRunning
	r.StartedAt = time.Now()
	return nil
}

// Finish moves the run from Running to the terminal Finished state.
func (r *Run) Finish() error { return r.complete(RunStateFinished) }

// Fail moves the run from Running to the terminal Error state.
func (r *Run) Fail() error { return r.complete(RunStateError) }

func (r *Run) complete(to RunState) error {
	if r.State != RunStateRunning {
		return &StateTransitionError{RunID: r.ID, From: r.State, To: to}
	}
	r.State = to
	r.CompletedAt = time.Now()
	return nil
}

// RunResult is the terminal snapshot of a successful run handed back to
// the caller.
type RunResult struct {
	// RunID identifies the run that produced this result.
	RunID string `json:"run_id"`

	// Symbol is the subject that was analyzed.
	Symbol string `json:"symbol"`

	// State is the terminal state; always RunStateFinished for results
	// returned without an error.
	State RunState `json:"state"`

	// Consolidated is the single decision derived from the contributors.
	Consolidated *ConsolidatedResult `json:"consolidated"`

	// Report is the rendered plain-text summary.
	Report string `json:"report,omitempty"`

	// StartedAt records when the run began executing.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt records when the run reached its terminal state.
	CompletedAt time.Time `json:"completed_at"`
}
