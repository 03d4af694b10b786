package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all calls through. This is the healthy state.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all calls until the cooldown has passed.
	StateOpen

	// StateHalfOpen lets one trial call through to test recovery. Other
	// calls are rejected until the trial finishes.
	StateHalfOpen
)

// String returns the state name used in metric labels.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and rejects
// calls for cooldownDuration before letting a trial call through.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	trialInFlight    bool
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
	}
}

// counts reports whether err says anything about the health of the
// backend. Missing keys and caller cancellation do not.
func counts(err error) bool {
	return !errors.Is(err, ports.ErrBlobNotFound) &&
		!errors.Is(err, context.Canceled)
}

// Call executes fn through the circuit breaker. If the circuit is open,
// or half-open with a trial already running, it returns
// ports.ErrCircuitOpen without calling fn. The lock is not held while fn
// runs.
func (cb *CircuitBreaker) Call(fn func() error) error {
	trial, err := cb.allow()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(err, trial)
	return err
}

// allow admits a call and reports whether it is the half-open trial.
func (cb *CircuitBreaker) allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldownDuration {
			return false, ports.ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.trialInFlight = true
		return true, nil
	case StateHalfOpen:
		if cb.trialInFlight {
			return false, ports.ErrCircuitOpen
		}
		cb.trialInFlight = true
		return true, nil
	default:
		return false, nil
	}
}

func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
		// A cancelled trial says nothing about the backend; the next
		// caller gets to try instead.
		if errors.Is(err, context.Canceled) {
			return
		}
	}
	if err != nil && counts(err) {
		cb.failureCount++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
			cb.state = StateOpen
		}
		return
	}
	cb.failureCount = 0
	cb.state = StateClosed
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerMiddleware creates middleware that fails fast while the
// backend is unhealthy. The breaker is shared by every store the
// middleware wraps. When collector is non-nil the state is exported as a
// gauge.
func CircuitBreakerMiddleware(cb *CircuitBreaker, collector ports.MetricsCollector) Middleware {
	return func(next ports.BlobStore) ports.BlobStore {
		backend := next.Backend()
		return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
			err := cb.Call(func() error { return call(ctx) })
			if collector != nil {
				collector.RecordGauge("storage_circuit_state", float64(cb.GetState()), map[string]string{"backend": backend})
			}
			return err
		})(next)
	}
}
