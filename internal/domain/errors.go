package domain

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by the champion selector. Callers match them with
// errors.Is; none of them is transient, so they are never retried.
var (
	// ErrEmptyCandidateSet indicates that selection was attempted with no
	// candidates at all.
	ErrEmptyCandidateSet = errors.New("no candidate models provided")

	// ErrMissingPolicyField indicates that the selection policy lacks its
	// required primary metric.
	ErrMissingPolicyField = errors.New("selection policy missing primary metric")

	// ErrNoEligibleCandidate indicates that every candidate fell below the
	// policy's minimum threshold. The concrete error is a
	// *NoEligibleCandidateError carrying the metric and threshold.
	ErrNoEligibleCandidate = errors.New("no candidate meets the minimum threshold")
)

// Errors for state and configuration handling.
var (
	// ErrKeyNotFound indicates that a requested state key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrTypeMismatch indicates that a value's type doesn't match the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownModelKind indicates a model kind outside the supported set.
	ErrUnknownModelKind = errors.New("unknown model kind")
)

// NoEligibleCandidateError reports which metric and threshold excluded
// every candidate.
type NoEligibleCandidateError struct {
	// Metric is the policy's primary metric.
	Metric string

	// Threshold is the minimum the metric had to reach.
	Threshold float64
}

// Error implements the error interface.
func (e *NoEligibleCandidateError) Error() string {
	return fmt.Sprintf("no candidate meets min_threshold %s >= %s",
		e.Metric, formatThreshold(e.Threshold))
}

// Unwrap returns ErrNoEligibleCandidate so errors.Is matches the sentinel.
func (e *NoEligibleCandidateError) Unwrap() error { return ErrNoEligibleCandidate }

func formatThreshold(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%g", v)
}

// StateError represents an error that occurred while reading or writing
// State. It names the key and the stage operation that failed.
type StateError struct {
	// Key is the name of the state key involved.
	Key string

	// Operation describes what was being performed when the error occurred.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError collects one or more validation failures for an entity.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the validation messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
