package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewStorageError("azure", "Get", "raw/german.csv", ErrBlobNotFound)

		assert.Equal(t, "storage error: backend=azure, operation=Get, key=raw/german.csv, err=blob not found", err.Error())
		assert.True(t, errors.Is(err, ErrBlobNotFound))
		assert.False(t, err.IsRetryable())
	})

	t.Run("retryable errors", func(t *testing.T) {
		for _, base := range []error{ErrRateLimited, ErrServiceUnavailable, ErrTimeout} {
			err := NewStorageError("local", "Put", "k", base)
			assert.True(t, err.IsRetryable(), "%v should be retryable", base)
			assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", err)))
		}

		for _, base := range []error{ErrBlobNotFound, ErrAuthenticationFailed, ErrCircuitOpen} {
			err := NewStorageError("local", "Put", "k", base)
			assert.False(t, err.IsRetryable(), "%v should not be retryable", base)
		}
	})

	t.Run("bare sentinels", func(t *testing.T) {
		assert.True(t, IsRetryable(ErrTimeout))
		assert.False(t, IsRetryable(errors.New("boom")))
	})
}

func TestRegistryError(t *testing.T) {
	err := NewRegistryError("models:/credit_model_rf/3", "Load", ErrModelNotFound)

	assert.Equal(t, "registry error: operation=Load, uri=models:/credit_model_rf/3, err=model not found", err.Error())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestMetricsError(t *testing.T) {
	base := errors.New("duplicate registration")
	err := NewMetricsError("stage_duration_seconds", "Register", base)

	assert.Equal(t, "metrics error: operation=Register, metric=stage_duration_seconds, err=duplicate registration", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("AZURE_STORAGE_CONTAINER_NAME", ErrConfigNotFound)

	assert.Equal(t, "config error: key=AZURE_STORAGE_CONTAINER_NAME, err=configuration not found", err.Error())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
