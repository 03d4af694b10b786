package storage

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// TracingMiddleware wraps every store call in a span. A nil tracer uses
// the global provider.
func TracingMiddleware(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("github.com/Anakin-Sudo/Credit-Scoring-MLOps/storage")
	}
	return func(next ports.BlobStore) ports.BlobStore {
		backend := next.Backend()
		return intercept(func(ctx context.Context, op, key string, call func(context.Context) error) error {
			ctx, span := tracer.Start(ctx, "storage."+op,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("storage.backend", backend),
					attribute.String("storage.key", key),
				),
			)
			defer span.End()

			err := call(ctx)
			if err != nil && !errors.Is(err, ports.ErrBlobNotFound) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		})(next)
	}
}
