package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

var _ ports.StageObserver = (*OTelStageObserver)(nil)

// TracerName is the instrumentation scope of stage spans.
const TracerName = "github.com/Anakin-Sudo/Credit-Scoring-MLOps/stages"

// OTelStageObserver implements observability for unit executions using
// OpenTelemetry tracing. It opens a span per stage, records the outcome on
// it, and reports latency and outcome counts to the metrics collector.
type OTelStageObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// NewOTelStageObserver creates a new stage observer. A nil tracer uses the
// global tracer provider; metrics may be nil.
func NewOTelStageObserver(tracer trace.Tracer, metrics ports.MetricsCollector) *OTelStageObserver {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OTelStageObserver{tracer: tracer, metrics: metrics}
}

// StageStarted implements the StageObserver interface. It starts a span
// for the unit and returns the context carrying it.
func (o *OTelStageObserver) StageStarted(ctx context.Context, unitID string) context.Context {
	ctx, _ = o.tracer.Start(ctx, "stage."+unitID, trace.WithAttributes(
		attribute.String("stage.unit", unitID),
	))
	return ctx
}

// StageFinished implements the StageObserver interface. It finalizes the
// span and records metrics.
func (o *OTelStageObserver) StageFinished(ctx context.Context, unitID string, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	status := stageStatus(err)
	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Int64("stage.duration_ms", elapsed.Milliseconds()),
	)

	if o.metrics != nil {
		labels := map[string]string{"unit": unitID, "status": status}
		o.metrics.RecordLatency(MetricStageExecution, elapsed, labels)
		o.metrics.RecordCounter(MetricStageRuns, 1, labels)
	}

	if err != nil {
		var noneErr *domain.NoEligibleCandidateError
		if errors.As(err, &noneErr) {
			span.AddEvent("selection.no_eligible_candidate", trace.WithAttributes(
				attribute.String("metric", noneErr.Metric),
				attribute.Float64("threshold", noneErr.Threshold),
			))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// stageStatus classifies a stage outcome for metric labels.
func stageStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrNoEligibleCandidate),
		errors.Is(err, domain.ErrEmptyCandidateSet),
		errors.Is(err, domain.ErrMissingPolicyField):
		return "selection_failed"
	default:
		return "error"
	}
}
