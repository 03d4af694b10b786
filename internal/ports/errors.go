package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during storage and registry
// interactions.
var (
	// ErrBlobNotFound indicates that no object exists under the key.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrModelNotFound indicates that a model URI does not resolve.
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidModelURI indicates a URI that is not of the form
	// models:/<name>/<version>.
	ErrInvalidModelURI = errors.New("invalid model uri")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrCircuitOpen indicates that the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrCorruptArtifact indicates that stored data could not be decoded.
	ErrCorruptArtifact = errors.New("corrupt artifact")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StorageError represents an error from a blob store operation.
type StorageError struct {
	// Backend names the store implementation.
	Backend string

	// Operation is the store method that failed.
	Operation string

	// Key is the object key involved.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StorageError.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: backend=%s, operation=%s, key=%s, err=%v", e.Backend, e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *StorageError) IsRetryable() bool {
	// Only transport-level failures are retryable; missing keys are not.
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewStorageError creates a new StorageError with the given details.
func NewStorageError(backend, operation, key string, err error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Key:       key,
		Err:       err,
	}
}

// IsRetryable reports whether err is a retryable storage failure anywhere
// in its chain.
func IsRetryable(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// RegistryError represents an error from a model registry operation.
type RegistryError struct {
	// URI is the model URI or run ID involved.
	URI string

	// Operation is the registry method that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for RegistryError.
func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry error: operation=%s, uri=%s, err=%v", e.Operation, e.URI, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegistryError) Unwrap() error { return e.Err }

// NewRegistryError creates a new RegistryError with the given details.
func NewRegistryError(uri, operation string, err error) *RegistryError {
	return &RegistryError{
		URI:       uri,
		Operation: operation,
		Err:       err,
	}
}

// MetricsError represents an error from metrics collection operations.
type MetricsError struct {
	// Metric is the name of the metric being collected.
	Metric string

	// Operation is the name of the metrics operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{
		Metric:    metric,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key involved.
	ConfigKey string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
