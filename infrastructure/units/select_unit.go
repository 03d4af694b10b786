package units

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

var _ ports.Unit = (*SelectUnit)(nil)

// Candidate sources for SelectConfig.Source.
const (
	// SourceRegistry lists the candidates registered under the run ID.
	SourceRegistry = "registry"
	// SourceState uses the candidates the train stage left in the state.
	SourceState = "state"
)

// SelectUnit chooses the champion among the trained candidates using a
// selection policy. It stores the decision under domain.KeyDecision and
// the champion under domain.KeyChampion.
// The unit is stateless and thread-safe for concurrent execution.
type SelectUnit struct {
	name     string
	config   SelectConfig
	selector domain.ChampionSelector
	registry ports.ModelRegistry
}

// SelectConfig defines the configuration parameters for the SelectUnit.
type SelectConfig struct {
	// Policy ranks the candidates.
	Policy domain.SelectionPolicy `mapstructure:"policy" yaml:"policy"`

	// Source is where candidates come from: "registry" or "state".
	Source string `mapstructure:"source" yaml:"source" validate:"required,oneof=registry state"`
}

// DefaultSelectConfig returns a SelectConfig with sensible defaults.
func DefaultSelectConfig() SelectConfig {
	return SelectConfig{
		Policy: domain.SelectionPolicy{Primary: domain.MetricCVAUCMean},
		Source: SourceRegistry,
	}
}

// NewSelectUnit creates a new SelectUnit. registry may be nil when Source
// is "state".
func NewSelectUnit(name string, config SelectConfig, registry ports.ModelRegistry) (*SelectUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if config.Source == SourceRegistry && registry == nil {
		return nil, fmt.Errorf("select unit %q: registry: %w", name, ErrMissingDependency)
	}
	selector, err := domain.NewPolicySelector(config.Policy)
	if err != nil {
		return nil, err
	}
	return &SelectUnit{
		name:     name,
		config:   config,
		selector: selector,
		registry: registry,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SelectUnit) Name() string { return u.name }

// Execute gathers the candidates of the run and applies the policy.
// Selector errors are returned unchanged apart from wrapping, so callers
// can match domain.ErrNoEligibleCandidate and friends.
func (u *SelectUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	candidates, err := u.candidates(ctx, state)
	if err != nil {
		return state, err
	}

	decision, err := u.selector.Select(candidates)
	if err != nil {
		return state, fmt.Errorf("selection failed: %w", err)
	}

	attrs := []any{
		"unit", u.name,
		"champion", decision.Champion.Model,
		"model_uri", decision.Champion.ModelURI,
		"eligible", decision.EligibleCount,
		"gap", decision.Gap,
		"tie_declared", decision.TieDeclared,
	}
	if decision.Overridden() {
		attrs = append(attrs, "deciding_rule", decision.DecidingRule)
	}
	slog.InfoContext(ctx, "champion selected", attrs...)

	champion := decision.Champion
	return state.WithMultiple(map[string]any{
		domain.KeyDecision.Name(): &decision,
		domain.KeyChampion.Name(): &champion,
	}), nil
}

func (u *SelectUnit) candidates(ctx context.Context, state domain.State) ([]domain.Candidate, error) {
	if u.config.Source == SourceState {
		candidates, err := requireInput(state, domain.KeyCandidates)
		if err != nil {
			return nil, err
		}
		return candidates, nil
	}

	runID, err := requireRunID(state)
	if err != nil {
		return nil, err
	}
	candidates, err := u.registry.ListCandidates(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates for run %q: %w", runID, err)
	}
	return candidates, nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *SelectUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := u.config.Policy.Validate(); err != nil {
		return err
	}
	if u.config.Source == SourceRegistry && u.registry == nil {
		return errors.Join(ErrMissingDependency, errors.New("registry source requires a model registry"))
	}
	return nil
}

// CreateSelectUnit is a factory function that creates a SelectUnit from a
// configuration map, following the UnitFactory pattern.
func CreateSelectUnit(id string, config map[string]any, registry ports.ModelRegistry) (*SelectUnit, error) {
	cfg := DefaultSelectConfig()
	if err := decodeParams(config, &cfg); err != nil {
		return nil, err
	}
	return NewSelectUnit(id, cfg, registry)
}
