// Package ports defines the interfaces between the workflow stages and the
// infrastructure they reach: storage, the model registry, metrics and the
// units that make up a pipeline.
package ports

import (
	"context"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// Unit is one stage of the training workflow: ingest, preprocess, train,
// select or score. Each Unit reads what it needs from the State and returns
// a new State with its outputs added.
// Units should be stateless and safe for concurrent execution.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, debugging, and configuration.
	Name() string

	// Execute performs the unit's transformation on the provided State.
	// It returns a new State containing the results of the transformation.
	// The original State should not be modified (immutability principle).
	// Any errors during execution should be returned rather than panicking.
	//
	// The context parameter allows for cancellation and deadline propagation.
	// Units should respect context cancellation and return promptly.
	//
	// Example:
	//
	//	newState, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return nil, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks if the unit is properly configured and ready for execution.
	// This method should verify all required dependencies and configuration.
	// It is typically called during pipeline construction or before execution.
	// Return nil if validation passes, or an error describing what is invalid.
	//
	// Example validations:
	// - Required configuration parameters are set
	// - Dependencies (storage, registry) are available
	Validate() error
}

// UnitFactory builds a configured Unit from the parameters of a pipeline
// configuration entry.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry resolves unit types named in pipeline configuration.
type UnitRegistry interface {
	// RegisterUnitFactory binds a unit type to its factory.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// CreateUnit builds a unit of the given type.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// GetSupportedTypes lists the registered unit types.
	GetSupportedTypes() []string
}
