package ports

import (
	"context"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// MergeStrategy folds the states produced by a layer's branches into the
// state handed to the next stage. states arrive in branch declaration
// order, and Merge must give the same result for the same inputs.
type MergeStrategy interface {
	Merge(base domain.State, states []domain.State) (domain.State, error)
}

// Executable is anything the workflow runner can schedule: a single
// stage (ingest, preprocess, train, select, score) or a container of
// stages.
type Executable interface {
	// Execute reads its inputs from state and returns a new state with
	// its outputs added. The input state is shared between branches of a
	// layer and must not be mutated; use domain.With.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID is the stage or container ID from the workflow definition.
	ID() string
}

// Pipeline runs its stages one after another, each seeing the state the
// previous one returned. A typical pipeline is ingest followed by
// preprocess.
type Pipeline interface {
	Executable

	// Add appends a stage. Duplicate IDs are rejected.
	Add(exec Executable) error

	// Executables returns the stages in run order. Callers must not
	// modify the slice.
	Executables() []Executable
}

// Layer runs independent stages concurrently on the same input state,
// for example several train stages fitting different model families,
// and merges their outputs.
type Layer interface {
	Executable

	// Add registers a branch. Branch order is the merge order.
	Add(exec Executable) error

	// Executables returns the branches in declaration order.
	Executables() []Executable

	// SetMergeStrategy replaces the default last-write-wins merge. Train
	// layers use a strategy that concatenates candidate lists.
	SetMergeStrategy(strategy MergeStrategy)
}

// Graph is the compiled workflow: pipelines, layers and standalone
// stages connected by dependency edges.
type Graph interface {
	// Name is the workflow name from the definition's metadata.
	Name() string

	// AddNode adds a stage or container. IDs are unique per graph.
	AddNode(exec Executable) error

	// AddEdge makes targetID wait for sourceID. Unknown IDs, duplicate
	// edges and edges that would close a cycle are rejected.
	AddEdge(sourceID, targetID string) error

	// TopologicalSort orders nodes so every dependency runs first. Nodes
	// with no ordering constraint between them keep insertion order, so
	// a definition always runs its stages in the same sequence.
	TopologicalSort() ([]Executable, error)

	// HasCycle reports whether the edges contain a cycle.
	HasCycle() bool

	// GetNode returns the node registered under id. The node is shared
	// with the graph and must be treated as read-only.
	GetNode(id string) (Executable, bool)

	// Execute runs every node in topological order, threading the state
	// through them.
	Execute(ctx context.Context, state domain.State) (domain.State, error)
}
