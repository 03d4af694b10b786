package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// UnitAdapter is an adapter that wraps a ports.Unit to implement the
// ports.Executable interface, enabling units to participate in graph
// execution workflows.
// Besides delegation it applies the unit's timeout and retry policy and
// reports every execution to a StageObserver.
type UnitAdapter struct {
	// unit is the underlying stage that performs the actual work when
	// Execute is called.
	unit ports.Unit
	// id is the unique identifier for this adapter within the graph
	// scope, used for referencing and error reporting.
	id       string
	observer ports.StageObserver
	timeout  time.Duration
	retry    RetryConfig
	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// AdapterOption configures a UnitAdapter.
type AdapterOption func(*UnitAdapter)

// WithObserver reports executions to o.
func WithObserver(o ports.StageObserver) AdapterOption {
	return func(ua *UnitAdapter) { ua.observer = o }
}

// WithTimeout bounds each attempt. Zero means no bound.
func WithTimeout(d time.Duration) AdapterOption {
	return func(ua *UnitAdapter) { ua.timeout = d }
}

// WithRetry re-executes the unit after retryable failures.
func WithRetry(cfg RetryConfig) AdapterOption {
	return func(ua *UnitAdapter) { ua.retry = cfg }
}

// NewUnitAdapter creates a new adapter that wraps a ports.Unit to
// implement the ports.Executable interface.
func NewUnitAdapter(unit ports.Unit, id string, opts ...AdapterOption) *UnitAdapter {
	ua := &UnitAdapter{
		unit:  unit,
		id:    id,
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(ua)
	}
	return ua
}

// Execute runs the underlying unit. A failure is retried only when it is
// a transient storage or registry failure and attempts remain; timeouts
// of the unit itself are not retried.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if ua.observer != nil {
		ctx = ua.observer.StageStarted(ctx, ua.id)
	}
	start := time.Now()

	out, err := ua.executeWithRetry(ctx, state)

	if ua.observer != nil {
		ua.observer.StageFinished(ctx, ua.id, time.Since(start), err)
	}
	return out, err
}

func (ua *UnitAdapter) executeWithRetry(ctx context.Context, state domain.State) (domain.State, error) {
	attempts := max(ua.retry.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := ua.executeOnce(ctx, state)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == attempts || !ports.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		if err := ua.sleep(ctx, ua.backoff(attempt)); err != nil {
			return state, fmt.Errorf("unit %s: retry wait interrupted: %w", ua.id, err)
		}
	}
	return state, lastErr
}

func (ua *UnitAdapter) executeOnce(ctx context.Context, state domain.State) (domain.State, error) {
	if ua.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ua.timeout)
		defer cancel()
	}
	return ua.unit.Execute(ctx, state)
}

// backoff returns the wait before attempt+1.
func (ua *UnitAdapter) backoff(attempt int) time.Duration {
	initial := time.Duration(ua.retry.InitialWait) * time.Millisecond
	var d time.Duration
	switch ua.retry.BackoffType {
	case "linear":
		d = initial * time.Duration(attempt)
	case "exponential":
		d = initial << (attempt - 1)
	default:
		d = initial
	}
	if ua.retry.MaxWait > 0 {
		d = min(d, time.Duration(ua.retry.MaxWait)*time.Millisecond)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ID returns the unique string identifier for this adapter.
func (ua *UnitAdapter) ID() string { return ua.id }
