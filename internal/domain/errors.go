package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by the consensus engine.
// Callers match them with errors.Is after unwrapping.
var (
	// ErrNoSubject indicates that a request carries no usable subject
	// identifier and cannot be dispatched.
	ErrNoSubject = errors.New("request has no subject identifier")

	// ErrInvalidResult indicates that an analyst returned a result that
	// fails validation and was discarded before aggregation.
	ErrInvalidResult = errors.New("invalid analyst result")

	// ErrNoResults indicates that no analyst produced a valid result
	// before the deadline, so there is nothing to aggregate.
	ErrNoResults = errors.New("no analyst results to aggregate")

	// ErrEngineClosed indicates that the engine is shutting down or has
	// shut down and no longer accepts runs.
	ErrEngineClosed = errors.New("engine is not accepting work")

	// ErrNilAnalyst indicates an attempt to register a nil analyst handle.
	ErrNilAnalyst = errors.New("analyst handle is nil")

	// ErrEmptyAnalystID indicates an attempt to register or weight an
	// analyst under an empty identifier.
	ErrEmptyAnalystID = errors.New("analyst id is empty")

	// ErrWeightOutOfRange indicates a weight outside the inclusive [0, 1]
	// range. The previously configured weight is kept unchanged.
	ErrWeightOutOfRange = errors.New("weight outside [0, 1]")

	// ErrInvalidTransition indicates an illegal run state transition,
	// such as re-entering a terminal state.
	ErrInvalidTransition = errors.New("invalid run state transition")

	// ErrShutdownTimeout indicates that in-flight runs did not drain
	// within the shutdown grace period and were force-cancelled.
	ErrShutdownTimeout = errors.New("shutdown grace period exceeded")
)

// StateTransitionError reports an illegal transition on a Run.
// It carries the offending states for logging and assertions.
type StateTransitionError struct {
	// RunID identifies the run whose transition failed.
	RunID string

	// From is the state the run was in.
	From RunState

	// To is the state the transition attempted to reach.
	To RunState
}

// Error implements the error interface for StateTransitionError.
func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("run %s: illegal transition %s -> %s", e.RunID, e.From, e.To)
}

// Unwrap returns ErrInvalidTransition so callers can match with errors.Is.
func (e *StateTransitionError) Unwrap() error { return ErrInvalidTransition }
