package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// MetricsMiddleware records latency and outcome of every store call.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next ports.BlobStore) ports.BlobStore {
		backend := next.Backend()
		return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
			start := time.Now()
			err := call(ctx)

			labels := map[string]string{
				"backend":   backend,
				"operation": op,
				"status":    storageStatus(err),
			}
			if collector != nil {
				collector.RecordHistogram("storage_latency_seconds", time.Since(start).Seconds(), labels)
				collector.RecordCounter("storage_requests_total", 1, labels)
			}
			return err
		})(next)
	}
}

func storageStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ports.ErrBlobNotFound):
		return "not_found"
	case errors.Is(err, ports.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
