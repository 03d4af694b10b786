package middleware

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMetrics registers a fresh collector set with its own registry so
// tests never collide on metric names.
func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		labels    map[string]string
		family    string
	}{
		{
			name:      "stage execution goes to the stage histogram",
			operation: MetricStageExecution,
			labels:    map[string]string{"unit": "train", "status": "success"},
			family:    "creditscore_stage_duration_seconds",
		},
		{
			name:      "other operations go to the generic histogram",
			operation: "candidate_training",
			labels:    map[string]string{"kind": "random_forest"},
			family:    "creditscore_operation_duration_seconds",
		},
		{
			name:      "missing labels fall back to unknown",
			operation: MetricStageExecution,
			labels:    nil,
			family:    "creditscore_stage_duration_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, reg := newTestMetrics(t)

			pm.RecordLatency(tt.operation, 150*time.Millisecond, tt.labels)

			count, err := testutil.GatherAndCount(reg, tt.family)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "one series should be observed in %s", tt.family)
		})
	}
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordCounter(MetricStageRuns, 1, map[string]string{"unit": "select", "status": "success"})
	pm.RecordCounter(MetricStageRuns, 1, map[string]string{"unit": "select", "status": "success"})
	pm.RecordCounter(MetricStageRuns, 1, map[string]string{"unit": "select", "status": "selection_failed"})
	pm.RecordCounter(MetricCandidatesTrained, 3, map[string]string{"kind": "gradient_boosting"})
	pm.RecordCounter(MetricStorageRequests, 1, map[string]string{"backend": "azure", "operation": "put", "status": "success"})
	pm.RecordCounter("registry_loads", 2, map[string]string{"unit": "score"})

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.stageRuns.WithLabelValues("select", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.stageRuns.WithLabelValues("select", "selection_failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.candidatesTrained.WithLabelValues("gradient_boosting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.storageRequests.WithLabelValues("azure", "put", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("registry_loads", "score")))
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordGauge(MetricChampionTest, 0.81, map[string]string{"metric": "auc_roc", "model": "xgb"})
	pm.RecordGauge(MetricChampionTest, 0.83, map[string]string{"metric": "auc_roc", "model": "xgb"})
	pm.RecordGauge("storage_circuit_state", 1, map[string]string{"backend": "azure"})

	expected := `
# HELP creditscore_champion_test_metric Test-set metrics of the most recently scored champion.
# TYPE creditscore_champion_test_metric gauge
creditscore_champion_test_metric{metric="auc_roc",model="xgb"} 0.83
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "creditscore_champion_test_metric"))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.systemGauges.WithLabelValues("storage_circuit_state", "azure")))
}

func TestPrometheusMetrics_RecordHistogram(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordHistogram(MetricStorageLatency, 0.02, map[string]string{"backend": "local", "operation": "get", "status": "success"})
	pm.RecordHistogram("artifact_bytes", 2048, map[string]string{"unit": "train"})

	storage, err := testutil.GatherAndCount(reg, "creditscore_storage_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, storage)

	generic, err := testutil.GatherAndCount(reg, "creditscore_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, generic)
}

func TestNewPrometheusMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)

	assert.Panics(t, func() { NewPrometheusMetrics(reg) },
		"registering the same collectors twice should panic")
	assert.NotPanics(t, func() { NewPrometheusMetrics(nil) },
		"a nil registerer creates unregistered collectors")
}
