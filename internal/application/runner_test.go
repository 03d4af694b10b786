package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// execContextKey captures the execution context a node observed.
var execContextKey = domain.NewKey[domain.ExecutionContext]("observed.exec")

func observingGraph(t *testing.T, name string, fail error) *Graph {
	t.Helper()
	graph := NewGraph()
	graph.name = name
	require.NoError(t, graph.AddNode(&mockExecutable{
		id: "observe",
		executeFunc: func(_ context.Context, state domain.State) (domain.State, error) {
			if fail != nil {
				return state, fail
			}
			exec, ok := state.GetExecutionContext()
			if !ok {
				return state, errors.New("execution context missing")
			}
			return domain.With(state, execContextKey, exec), nil
		},
	}))
	return graph
}

func TestRunner_Run(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"generated-1", "generated-2"}

	tests := []struct {
		name      string
		runID     string
		wantRunID string
		wantExec  string
	}{
		{
			name:      "explicit run ID is kept",
			runID:     "run42",
			wantRunID: "run42",
			wantExec:  "generated-1",
		},
		{
			name:      "empty run ID starts a new run",
			wantRunID: "generated-1",
			wantExec:  "generated-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a runner with a fixed clock and ID source
			runner := NewRunner(observingGraph(t, "credit-scoring", nil))
			runner.now = func() time.Time { return started }
			next := 0
			runner.newID = func() string {
				id := ids[next]
				next++
				return id
			}

			// When the workflow runs
			out, err := runner.Run(context.Background(), tt.runID, domain.NewState())

			// Then every stage sees the execution metadata
			require.NoError(t, err)
			exec, ok := domain.Get(out, execContextKey)
			require.True(t, ok)
			assert.Equal(t, domain.ExecutionContext{
				PipelineID:  "credit-scoring",
				ExecutionID: tt.wantExec,
				RunID:       tt.wantRunID,
				StartedAt:   started,
			}, exec)
		})
	}
}

func TestRunner_PreservesInitialState(t *testing.T) {
	input := domain.NewKey[string]("input")
	initial := domain.With(domain.NewState(), input, "caller data")

	out, err := NewRunner(observingGraph(t, "wf", nil)).Run(context.Background(), "r1", initial)
	require.NoError(t, err)

	v, ok := domain.Get(out, input)
	require.True(t, ok)
	assert.Equal(t, "caller data", v)
}

func TestRunner_Errors(t *testing.T) {
	t.Run("stage failure names the run", func(t *testing.T) {
		_, err := NewRunner(observingGraph(t, "wf", domain.ErrEmptyCandidateSet)).
			Run(context.Background(), "run7", domain.NewState())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmptyCandidateSet)
		assert.Contains(t, err.Error(), "run run7")
		assert.Contains(t, err.Error(), "node observe")
	})

	t.Run("nil graph", func(t *testing.T) {
		_, err := NewRunner(nil).Run(context.Background(), "r", domain.NewState())
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewRunner(observingGraph(t, "wf", nil)).Run(ctx, "r", domain.NewState())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
