package storage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/config"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Options carries the optional collaborators of Open.
type Options struct {
	// Collector receives latency and request metrics. Nil disables them.
	Collector ports.MetricsCollector

	// Tracer records a span per operation. Nil disables tracing.
	Tracer trace.Tracer

	// Breaker guards the backend. Nil creates one that opens after five
	// consecutive failures for thirty seconds.
	Breaker *CircuitBreaker
}

// Open builds the configured backend wrapped in the standard middleware
// chain: tracing, metrics, circuit breaker, retry, rate limit, timeout.
// The local and memory backends skip the breaker, retries and the rate
// limit since their failures are not transient.
func Open(ctx context.Context, cfg config.StorageSettings, opts Options) (ports.BlobStore, error) {
	var (
		backend ports.BlobStore
		remote  bool
	)
	switch cfg.Backend {
	case BackendLocal:
		s, err := NewLocalStore(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		backend = s
	case BackendMemory:
		backend = NewMemoryStore()
	case BackendAzure:
		s, err := NewAzureStore(ctx, AzureOptions{
			ConnectionString: cfg.ConnectionString,
			AccountURL:       cfg.AccountURL,
			Container:        cfg.Container,
			CreateContainer:  cfg.CreateContainer,
		})
		if err != nil {
			return nil, err
		}
		backend, remote = s, true
	default:
		return nil, ports.NewConfigError("STORAGE_BACKEND", fmt.Errorf("unknown storage backend %q", cfg.Backend))
	}

	var chain []Middleware
	if opts.Tracer != nil {
		chain = append(chain, TracingMiddleware(opts.Tracer))
	}
	if opts.Collector != nil {
		chain = append(chain, MetricsMiddleware(opts.Collector))
	}
	if remote {
		breaker := opts.Breaker
		if breaker == nil {
			breaker = NewCircuitBreaker(5, 30*time.Second)
		}
		chain = append(chain,
			CircuitBreakerMiddleware(breaker, opts.Collector),
			RetryMiddleware(cfg.MaxRetries, 200*time.Millisecond, 5*time.Second),
			RateLimitMiddleware(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		)
	}
	if cfg.Timeout > 0 {
		chain = append(chain, TimeoutMiddleware(cfg.Timeout))
	}
	return Chain(backend, chain...), nil
}
