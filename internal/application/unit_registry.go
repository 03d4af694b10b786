package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/units"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// Dependencies are the collaborators injected into the built-in units.
// Collector may be nil.
type Dependencies struct {
	Store     ports.BlobStore
	Registry  ports.ModelRegistry
	Trainer   ports.ModelTrainer
	Collector ports.MetricsCollector
}

// DefaultUnitRegistry implements the UnitRegistry interface providing
// a factory for creating workflow units based on type and configuration.
// It supports dynamic registration of unit factories and hands the
// storage, registry and trainer dependencies to the units that need them.
type DefaultUnitRegistry struct {
	// factories maps unit type strings to their factory functions.
	factories map[string]ports.UnitFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
	// deps are injected into the built-in factories.
	deps Dependencies
}

// NewDefaultUnitRegistry creates a new unit registry with the ingest,
// preprocess, train, select and score units pre-registered.
func NewDefaultUnitRegistry(deps Dependencies) *DefaultUnitRegistry {
	registry := &DefaultUnitRegistry{
		factories: make(map[string]ports.UnitFactory),
		deps:      deps,
	}

	registry.registerBuiltinFactories()

	return registry
}

// registerBuiltinFactories registers the standard workflow stages.
func (r *DefaultUnitRegistry) registerBuiltinFactories() {
	deps := r.deps

	r.factories[UnitTypeIngest] = func(id string, config map[string]any) (ports.Unit, error) {
		unit, err := units.CreateIngestUnit(id, config, deps.Store)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}

	r.factories[UnitTypePreprocess] = func(id string, config map[string]any) (ports.Unit, error) {
		unit, err := units.CreatePreprocessUnit(id, config)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}

	r.factories[UnitTypeTrain] = func(id string, config map[string]any) (ports.Unit, error) {
		unit, err := units.CreateTrainUnit(id, config, deps.Trainer, deps.Registry, deps.Collector)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}

	r.factories[UnitTypeSelect] = func(id string, config map[string]any) (ports.Unit, error) {
		unit, err := units.CreateSelectUnit(id, config, deps.Registry)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}

	r.factories[UnitTypeScore] = func(id string, config map[string]any) (ports.Unit, error) {
		unit, err := units.CreateScoreUnit(id, config, deps.Registry, deps.Store, deps.Collector)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}
}

// CreateUnit creates a new unit instance based on the provided type,
// identifier, and configuration.
// It looks up the appropriate factory function and delegates unit creation.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}

	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}

	return unit, nil
}

// RegisterUnitFactory registers a new factory function for a specific unit type.
// This allows extending or overriding the built-in stages at runtime.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory,
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns the registered unit types in sorted order.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for unitType := range r.factories {
		types = append(types, unitType)
	}
	slices.Sort(types)

	return types
}
