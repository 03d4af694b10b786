package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

func newRecordingObserver(t *testing.T) (*OTelStageObserver, *tracetest.SpanRecorder, *PrometheusMetrics) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	pm, _ := newTestMetrics(t)
	return NewOTelStageObserver(provider.Tracer(TracerName), pm), recorder, pm
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOTelStageObserver_Success(t *testing.T) {
	observer, recorder, pm := newRecordingObserver(t)

	// Given a stage that completes
	ctx := observer.StageStarted(context.Background(), "train")
	observer.StageFinished(ctx, "train", 2*time.Second, nil)

	// Then one finished span records the stage
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "stage.train", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	unit, ok := attr(span, "stage.unit")
	require.True(t, ok)
	assert.Equal(t, "train", unit.AsString())
	status, ok := attr(span, "stage.status")
	require.True(t, ok)
	assert.Equal(t, "success", status.AsString())

	// And the outcome is counted
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.stageRuns.WithLabelValues("train", "success")))
}

func TestOTelStageObserver_Failures(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus string
		expectedEvent  string
	}{
		{
			name:           "no eligible candidate",
			err:            fmt.Errorf("selection failed: %w", &domain.NoEligibleCandidateError{Metric: "auc_roc", Threshold: 0.9}),
			expectedStatus: "selection_failed",
			expectedEvent:  "selection.no_eligible_candidate",
		},
		{
			name:           "empty candidate set",
			err:            domain.ErrEmptyCandidateSet,
			expectedStatus: "selection_failed",
		},
		{
			name:           "deadline",
			err:            fmt.Errorf("train: %w", context.DeadlineExceeded),
			expectedStatus: "timeout",
		},
		{
			name:           "canceled",
			err:            context.Canceled,
			expectedStatus: "canceled",
		},
		{
			name:           "other",
			err:            errors.New("disk full"),
			expectedStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer, recorder, pm := newRecordingObserver(t)

			ctx := observer.StageStarted(context.Background(), "select")
			observer.StageFinished(ctx, "select", time.Millisecond, tt.err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code)
			assert.Equal(t, tt.err.Error(), spans[0].Status().Description)

			var events []string
			for _, e := range spans[0].Events() {
				events = append(events, e.Name)
			}
			assert.Contains(t, events, "exception", "the error should be recorded on the span")
			if tt.expectedEvent != "" {
				assert.Contains(t, events, tt.expectedEvent)
			}

			assert.Equal(t, 1.0, testutil.ToFloat64(pm.stageRuns.WithLabelValues("select", tt.expectedStatus)))
		})
	}
}

func TestOTelStageObserver_NilDependencies(t *testing.T) {
	observer := NewOTelStageObserver(nil, nil)

	assert.NotPanics(t, func() {
		ctx := observer.StageStarted(context.Background(), "score")
		observer.StageFinished(ctx, "score", time.Millisecond, errors.New("boom"))
	})
}
