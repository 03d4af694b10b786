package storage

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// RetryMiddleware creates middleware that retries transient failures
// (rate limiting, unavailability, timeouts) with exponential backoff and
// jitter. Missing keys, authentication failures and an open circuit are
// returned at once.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
		var lastErr error

		for attempt := 0; attempt <= maxRetries; attempt++ {
			err := call(ctx)
			if err == nil {
				return nil
			}
			lastErr = err

			if !ports.IsRetryable(err) || ctx.Err() != nil {
				return err
			}
			if attempt == maxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt, baseDelay, maxDelay)):
			}
		}

		return fmt.Errorf("%s %q failed after %d attempts: %w", op, key, maxRetries+1, lastErr)
	})
}

func backoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	attempt = min(max(attempt, 0), 30)
	delay := baseDelay * time.Duration(1<<uint(attempt))

	// Jitter of ±25%.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	return min(delay, maxDelay)
}
