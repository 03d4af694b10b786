// Package application compiles declarative workflow definitions into
// executable graphs of training stages and runs them.
package application

import (
	"gopkg.in/yaml.v3"
)

// Unit types accepted in a workflow definition.
const (
	UnitTypeIngest     = "ingest"
	UnitTypePreprocess = "preprocess"
	UnitTypeTrain      = "train"
	UnitTypeSelect     = "select"
	UnitTypeScore      = "score"
)

// UnitTypes lists the accepted unit types in workflow order.
var UnitTypes = []string{UnitTypeIngest, UnitTypePreprocess, UnitTypeTrain, UnitTypeSelect, UnitTypeScore}

// GraphConfig defines the complete specification for a training workflow
// and serves as the primary configuration entry point for the system.
type GraphConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the workflow.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Units defines the stages that will execute within this graph.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
	// Graph specifies the execution topology that determines how units
	// are connected and the order in which they execute.
	Graph GraphTopology `yaml:"graph" validate:"required"`
}

// Metadata provides descriptive information about a workflow.
type Metadata struct {
	// Name identifies the workflow and becomes the pipeline ID of every
	// execution.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description provides a detailed explanation of the workflow's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels for filtering workflows.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for external systems.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// UnitConfig defines a single stage within a workflow, including its
// parameters and error handling policies.
type UnitConfig struct {
	// ID is the unique identifier for this unit within the graph
	// and must be alphanumeric for safe referencing in topologies.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the stage implementation, one of UnitTypes. Unknown
	// types are reported with a suggestion during semantic validation.
	Type string `yaml:"type" validate:"required"`
	// Parameters contains type-specific configuration as flexible YAML
	// that will be validated according to the unit type requirements.
	Parameters yaml.Node `yaml:"parameters"`
	// Retry configures re-execution after transient failures.
	Retry RetryConfig `yaml:"retry"`
	// Timeout bounds a single execution of the unit.
	Timeout TimeoutConfig `yaml:"timeout"`
}

// RetryConfig specifies the error recovery strategy for a unit when
// transient failures occur, typically storage or registry outages.
type RetryConfig struct {
	// MaxAttempts defines the total number of execution attempts including
	// the initial attempt, where 0 and 1 both disable retries.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=10"`
	// BackoffType determines the delay calculation strategy between retry
	// attempts.
	BackoffType string `yaml:"backoff_type" validate:"omitempty,oneof=constant exponential linear"`
	// InitialWait specifies the base delay in milliseconds before the
	// first retry attempt.
	InitialWait int `yaml:"initial_wait_ms" validate:"omitempty,min=0,max=60000"`
	// MaxWait caps the delay in milliseconds between retry attempts.
	MaxWait int `yaml:"max_wait_ms" validate:"omitempty,min=0,max=300000"`
}

// TimeoutConfig controls execution time limits for a unit.
type TimeoutConfig struct {
	// ExecutionTimeout specifies the maximum time in seconds that a unit
	// is allowed to execute before being interrupted and marked as failed.
	ExecutionTimeout int `yaml:"execution_timeout_seconds" validate:"omitempty,min=1,max=86400"`
}

// GraphTopology specifies the structural organization and execution flow
// of units, supporting both sequential and parallel execution patterns.
type GraphTopology struct {
	// Pipelines define sequential execution chains where units execute
	// in strict order, with each unit's output feeding to the next.
	Pipelines []PipelineConfig `yaml:"pipelines" validate:"dive"`
	// Layers define parallel execution groups, for example several train
	// units fitting disjoint candidate sets.
	Layers []LayerConfig `yaml:"layers" validate:"dive"`
	// Edges specify directed dependencies between units, pipelines, and
	// layers.
	Edges []EdgeConfig `yaml:"edges" validate:"dive"`
}

// PipelineConfig defines a sequential execution chain.
type PipelineConfig struct {
	// ID is the unique identifier for this pipeline within the graph
	// topology, used for referencing in edges and execution planning.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Units lists the unit IDs in execution order.
	Units []string `yaml:"units" validate:"required,min=1,dive,alphanum"`
}

// LayerConfig defines a parallel execution group. Every unit receives the
// same input state and the outputs are merged with candidate lists
// concatenated in declaration order.
type LayerConfig struct {
	// ID is the unique identifier for this layer within the graph topology.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Units lists the unit IDs that will execute in parallel, with a
	// minimum of two units required to justify layer overhead.
	Units []string `yaml:"units" validate:"required,min=2,dive,alphanum"`
	// Concurrency bounds how many units run at once. Zero uses the
	// default of twice the CPU count.
	Concurrency int `yaml:"concurrency" validate:"min=0,max=64"`
}

// EdgeConfig establishes a directed dependency between execution nodes:
// To does not start before From has completed.
type EdgeConfig struct {
	// From identifies the source node (unit, pipeline, or layer).
	From string `yaml:"from" validate:"required,alphanum"`
	// To identifies the target node.
	To string `yaml:"to" validate:"required,alphanum"`
}
