// Package units provides the stages of the credit-risk training workflow
// as ports.Unit implementations: ingest, preprocess, train, select and
// score.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// Common errors returned by the workflow units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrMissingInput is returned when a unit runs before the stage that
	// produces its input.
	ErrMissingInput = errors.New("required input missing from state")

	// ErrMissingDependency is returned when a unit is built without a
	// collaborator it needs, such as a blob store or registry.
	ErrMissingDependency = errors.New("unit dependency not configured")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// decodeParams overlays the raw parameter map from a pipeline file onto
// target, which should already hold the defaults. Unknown keys are an
// error so that typos are reported instead of silently ignored.
func decodeParams(params map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create parameter decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	return nil
}

// requireInput fetches a value a previous stage must have produced.
func requireInput[T any](state domain.State, key domain.Key[T]) (T, error) {
	v, ok := domain.Get(state, key)
	if !ok {
		var zero T
		return zero, domain.NewStateError(key.Name(), "get", ErrMissingInput)
	}
	return v, nil
}

// requireRunID returns the run ID seeded by the runner. Training and
// selection never fall back to ambient process state for it.
func requireRunID(state domain.State) (string, error) {
	runID, err := requireInput(state, domain.KeyRunID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(runID) == "" {
		return "", domain.NewStateError(domain.KeyRunID.Name(), "get", domain.ErrEmptyValue)
	}
	return runID, nil
}

// expandRunKey substitutes the run ID into a storage key template.
func expandRunKey(template, runID string) string {
	return strings.ReplaceAll(template, "{run_id}", runID)
}
