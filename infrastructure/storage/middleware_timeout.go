package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// TimeoutMiddleware bounds every store call by timeout. A call that runs
// out of time fails with an error matching ports.ErrTimeout, which the
// retry middleware treats as transient.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := call(callCtx)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s %q: %w", op, key, ports.ErrTimeout)
		}
		return err
	})
}
