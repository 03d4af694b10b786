package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports/mocks"
)

// recordingCollector captures metrics for assertions.
type recordingCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string]int
	gauges     map[string]float64
	labels     []map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string]int),
		gauges:     make(map[string]float64),
	}
}

func (c *recordingCollector) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	c.RecordHistogram(operation, d.Seconds(), labels)
}

func (c *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[metric+"/"+labels["status"]] += value
	c.labels = append(c.labels, labels)
}

func (c *recordingCollector) RecordGauge(metric string, value float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[metric] = value
}

func (c *recordingCollector) RecordHistogram(metric string, _ float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms[metric]++
}

func transient() error {
	return ports.NewStorageError(BackendAzure, OpGet, "k", ports.ErrServiceUnavailable)
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
			order = append(order, name)
			return call(ctx)
		})
	}

	store := Chain(NewMemoryStore(), tag("a"), tag("b"), tag("c"))
	_, _ = store.Exists(context.Background(), "k")

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, BackendMemory, store.Backend(), "Backend passes through middleware")
}

func TestRetryMiddleware_RetriesTransientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBlobStore(ctrl)

	// Given a backend that is unavailable twice, then answers
	gomock.InOrder(
		backend.EXPECT().Get(gomock.Any(), "k").Return(nil, transient()).Times(2),
		backend.EXPECT().Get(gomock.Any(), "k").Return([]byte("ok"), nil),
	)

	store := RetryMiddleware(3, time.Millisecond, 5*time.Millisecond)(backend)

	// When reading
	data, err := store.Get(context.Background(), "k")

	// Then the third attempt's result is returned
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestRetryMiddleware_GivesUpAfterMaxRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBlobStore(ctrl)
	backend.EXPECT().Put(gomock.Any(), "k", gomock.Any()).Return(transient()).Times(3)

	store := RetryMiddleware(2, time.Millisecond, 5*time.Millisecond)(backend)
	err := store.Put(context.Background(), "k", []byte("v"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestRetryMiddleware_DoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not found", err: ports.NewStorageError(BackendAzure, OpGet, "k", ports.ErrBlobNotFound)},
		{name: "auth", err: ports.NewStorageError(BackendAzure, OpGet, "k", ports.ErrAuthenticationFailed)},
		{name: "circuit open", err: ports.ErrCircuitOpen},
		{name: "plain", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			backend := mocks.NewMockBlobStore(ctrl)
			backend.EXPECT().Get(gomock.Any(), "k").Return(nil, tt.err).Times(1)

			store := RetryMiddleware(5, time.Millisecond, time.Millisecond)(backend)
			_, err := store.Get(context.Background(), "k")
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRetryMiddleware_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBlobStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	backend.EXPECT().Get(gomock.Any(), "k").DoAndReturn(func(context.Context, string) ([]byte, error) {
		cancel()
		return nil, transient()
	}).Times(1)

	store := RetryMiddleware(5, time.Second, time.Second)(backend)
	_, err := store.Get(ctx, "k")
	assert.Error(t, err)
}

func TestBackoff_Bounds(t *testing.T) {
	base, maxDelay := 100*time.Millisecond, time.Second
	for attempt := range 8 {
		d := backoff(attempt, base, maxDelay)
		assert.LessOrEqual(t, d, maxDelay)
		assert.GreaterOrEqual(t, d, base*3/4)
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBlobStore(ctrl)
	backend.EXPECT().Backend().Return(BackendAzure).AnyTimes()

	collector := newRecordingCollector()
	cb := NewCircuitBreaker(2, 20*time.Millisecond)
	store := CircuitBreakerMiddleware(cb, collector)(backend)
	ctx := context.Background()

	// Given two consecutive failures
	backend.EXPECT().Exists(gomock.Any(), "k").Return(false, transient()).Times(2)
	for range 2 {
		_, err := store.Exists(ctx, "k")
		require.Error(t, err)
	}

	// Then the circuit is open and calls fail fast
	assert.Equal(t, StateOpen, cb.GetState())
	assert.Equal(t, float64(StateOpen), collector.gauges["storage_circuit_state"])
	_, err := store.Exists(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrCircuitOpen)

	// When the cooldown passes a trial call goes through and closes it
	time.Sleep(30 * time.Millisecond)
	backend.EXPECT().Exists(gomock.Any(), "k").Return(true, nil)
	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_IgnoresMissingKeys(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	for range 3 {
		err := cb.Call(func() error {
			return ports.NewStorageError(BackendAzure, OpGet, "k", ports.ErrBlobNotFound)
		})
		assert.ErrorIs(t, err, ports.ErrBlobNotFound)
	}
	assert.Equal(t, StateClosed, cb.GetState(), "not-found says nothing about backend health")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(3, 10*time.Millisecond)
	for range 3 {
		_ = cb.Call(func() error { return transient() })
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(15 * time.Millisecond)
	_ = cb.Call(func() error { return transient() })
	assert.Equal(t, StateOpen, cb.GetState(), "one failure in half-open reopens the circuit")
}

func TestCircuitBreaker_HalfOpenAdmitsOneTrial(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	_ = cb.Call(func() error { return transient() })
	require.Equal(t, StateOpen, cb.GetState())
	time.Sleep(15 * time.Millisecond)

	// Given a trial call that is still running
	started, release := make(chan struct{}), make(chan struct{})
	trialDone := make(chan error, 1)
	go func() {
		trialDone <- cb.Call(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	require.Equal(t, StateHalfOpen, cb.GetState())

	// When another caller arrives it is turned away without running
	ran := false
	err := cb.Call(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ports.ErrCircuitOpen)
	assert.False(t, ran)

	// Then a successful trial closes the circuit for everyone
	close(release)
	require.NoError(t, <-trialDone)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Call(func() error { return nil }))
}

func TestCircuitBreaker_CancelledTrialFreesTheSlot(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	_ = cb.Call(func() error { return transient() })
	time.Sleep(15 * time.Millisecond)

	err := cb.Call(func() error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	called := false
	require.NoError(t, cb.Call(func() error { called = true; return nil }))
	assert.True(t, called, "the next caller runs the trial")
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
}

func TestTimeoutMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBlobStore(ctrl)
	backend.EXPECT().Get(gomock.Any(), "slow").DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	store := TimeoutMiddleware(10 * time.Millisecond)(backend)
	_, err := store.Get(context.Background(), "slow")

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrTimeout)
	assert.True(t, ports.IsRetryable(err), "timeouts are transient")
}

func TestTimeoutMiddleware_CallerCancelIsNotTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBlobStore(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	backend.EXPECT().Get(gomock.Any(), "k").DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := TimeoutMiddleware(time.Minute)(backend).Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ports.ErrTimeout)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("disabled passes through", func(t *testing.T) {
		inner := NewMemoryStore()
		assert.Same(t, ports.BlobStore(inner), RateLimitMiddleware(0, 1)(inner))
	})

	t.Run("waits for tokens", func(t *testing.T) {
		store := RateLimitMiddleware(rate.Limit(50), 1)(NewMemoryStore())
		ctx := context.Background()

		start := time.Now()
		for range 3 {
			_, err := store.Exists(ctx, "k")
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("context deadline while waiting", func(t *testing.T) {
		store := RateLimitMiddleware(rate.Limit(0.1), 1)(NewMemoryStore())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := store.Exists(ctx, "k")
		require.NoError(t, err, "burst token is available immediately")
		_, err = store.Exists(ctx, "k")
		assert.Error(t, err)
	})
}

func TestMetricsMiddleware(t *testing.T) {
	collector := newRecordingCollector()
	store := MetricsMiddleware(collector)(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v")))
	_, err := store.Get(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, 1.0, collector.counters["storage_requests_total/success"])
	assert.Equal(t, 1.0, collector.counters["storage_requests_total/not_found"])
	assert.Equal(t, 2, collector.histograms["storage_latency_seconds"])
	for _, labels := range collector.labels {
		assert.Equal(t, BackendMemory, labels["backend"])
	}
}

func TestStorageStatus(t *testing.T) {
	assert.Equal(t, "success", storageStatus(nil))
	assert.Equal(t, "circuit_open", storageStatus(ports.ErrCircuitOpen))
	assert.Equal(t, "timeout", storageStatus(context.DeadlineExceeded))
	assert.Equal(t, "error", storageStatus(errors.New("x")))
}

func TestTracingMiddleware_PassesResults(t *testing.T) {
	store := TracingMiddleware(noop.NewTracerProvider().Tracer("test"))(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v")))
	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}
