package storage

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// RateLimitMiddleware creates middleware that paces store calls with a
// token bucket. The limit parameter sets calls per second, while burst
// allows temporary spikes above the sustained rate. A non-positive limit
// disables limiting.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	if limit <= 0 {
		return func(next ports.BlobStore) ports.BlobStore { return next }
	}
	limiter := rate.NewLimiter(limit, burst)

	return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		return call(ctx)
	})
}
