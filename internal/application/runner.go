package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// Runner executes a compiled workflow graph once per call, seeding the
// state with the execution metadata every stage relies on.
type Runner struct {
	graph *Graph
	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner for graph.
func NewRunner(graph *Graph) *Runner {
	return &Runner{
		graph: graph,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run executes the workflow under runID. An empty runID starts a new run
// with a generated identifier; pass an existing one to re-select or
// re-score the candidates of an earlier run. initial may carry inputs for
// the first stage, for example a dataset loaded by the caller.
func (r *Runner) Run(ctx context.Context, runID string, initial domain.State) (domain.State, error) {
	if r.graph == nil {
		return initial, fmt.Errorf("runner has no graph: %w", domain.ErrInvalidConfiguration)
	}
	if runID == "" {
		runID = r.newID()
	}

	exec := domain.ExecutionContext{
		PipelineID:  r.graph.Name(),
		ExecutionID: r.newID(),
		RunID:       runID,
		StartedAt:   r.now(),
	}
	state := initial.WithExecutionContext(exec)

	slog.InfoContext(ctx, "workflow started",
		"pipeline", exec.PipelineID,
		"run_id", exec.RunID,
		"execution_id", exec.ExecutionID)

	out, err := r.graph.Execute(ctx, state)
	elapsed := r.now().Sub(exec.StartedAt)
	if err != nil {
		slog.ErrorContext(ctx, "workflow failed",
			"pipeline", exec.PipelineID,
			"run_id", exec.RunID,
			"elapsed", elapsed,
			"error", err)
		return out, fmt.Errorf("run %s: %w", runID, err)
	}

	slog.InfoContext(ctx, "workflow finished",
		"pipeline", exec.PipelineID,
		"run_id", exec.RunID,
		"elapsed", elapsed)
	return out, nil
}
