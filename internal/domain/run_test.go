package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Lifecycle(t *testing.T) {
	t.Run("successful run", func(t *testing.T) {
		run := NewRun("AAPL")
		assert.Equal(t, RunStateIdle, run.State)
		assert.Contains(t, run.ID, "AAPL-")

		require.NoError(t, run.Start())
		assert.Equal(t, RunStateRunning, run.State)
		assert.False(t, run.StartedAt.IsZero())

		require.NoError(t, run.Finish())
		assert.Equal(t, RunStateFinished, run.State)
		assert.False(t, run.CompletedAt.IsZero())
	})

	t.Run("failed run", func(t *testing.T) {
		run := NewRun("TSLA")
		require.NoError(t, run.Start())
		require.NoError(t, run.Fail())
		assert.Equal(t, RunStateError, run.State)
	})
}

func TestRun_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		prep func(r *Run)
		move func(r *Run) error
	}{
		{
			name: "finish before start",
			prep: func(r *Run) {},
			move: func(r *Run) error { return r.Finish() },
		},
		{
			name: "fail before start",
			prep: func(r *Run) {},
			move: func(r *Run) error { return r.Fail() },
		},
		{
			name: "start twice",
			prep: func(r *Run) { _ = r.Start() },
			move: func(r *Run) error { return r.Start() },
		},
		{
			name: "finished is not re-entrant",
			prep: func(r *Run) { _ = r.Start(); _ = r.Finish() },
			move: func(r *Run) error { return r.Start() },
		},
		{
			name: "finish after failure",
			prep: func(r *Run) { _ = r.Start(); _ = r.Fail() },
			move: func(r *Run) error { return r.Finish() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := NewRun("NVDA")
			tt.prep(run)

			err := tt.move(run)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var transitionErr *StateTransitionError
			require.True(t, errors.As(err, &transitionErr))
			assert.Equal(t, run.ID, transitionErr.RunID)
		})
	}
}

func TestStateTransitionError_Message(t *testing.T) {
	err := &StateTransitionError{RunID: "AAPL-1", From: RunStateFinished, To: RunStateRunning}
	assert.Equal(t, "run AAPL-1: illegal transition finished -> running", err.Error())
}
