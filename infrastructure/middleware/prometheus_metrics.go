// Package middleware provides cross-cutting concerns for the training
// workflow: Prometheus metrics and OpenTelemetry tracing around stages.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Metric names understood by PrometheusMetrics. Anything else is routed to
// the generic operation metrics.
const (
	MetricStageExecution    = "stage_execution"
	MetricStageRuns         = "stage_runs_total"
	MetricStorageLatency    = "storage_latency_seconds"
	MetricStorageRequests   = "storage_requests_total"
	MetricCandidatesTrained = "candidates_trained_total"
	MetricChampionTest      = "champion_test_metric"
)

const namespace = "creditscore"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It exposes stage latency and outcomes, storage traffic, training volume
// and the champion's test metrics.
type PrometheusMetrics struct {
	stageLatency      *prometheus.HistogramVec
	stageRuns         *prometheus.CounterVec
	storageLatency    *prometheus.HistogramVec
	storageRequests   *prometheus.CounterVec
	candidatesTrained *prometheus.CounterVec
	championMetric    *prometheus.GaugeVec
	operationLatency  *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	systemGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics with reg. A nil reg creates unregistered metrics.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Execution time of workflow stages.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"unit", "status"},
		),
		stageRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_runs_total",
				Help:      "Number of workflow stage executions by outcome.",
			},
			[]string{"unit", "status"},
		),
		storageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_latency_seconds",
				Help:      "Latency of blob store operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation", "status"},
		),
		storageRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_requests_total",
				Help:      "Number of blob store operations by outcome.",
			},
			[]string{"backend", "operation", "status"},
		),
		candidatesTrained: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_trained_total",
				Help:      "Number of candidate models trained and registered.",
			},
			[]string{"kind"},
		),
		championMetric: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "champion_test_metric",
				Help:      "Test-set metrics of the most recently scored champion.",
			},
			[]string{"metric", "model"},
		),

		// General execution metrics for everything else.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of other workflow operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "scope"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Number of other workflow operations.",
			},
			[]string{"operation", "scope"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Current state values such as circuit breaker positions.",
			},
			[]string{"metric", "scope"},
		),
	}
}

// labelOr returns labels[key], or "unknown" when it is absent or empty.
func labelOr(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// scope picks the most specific label naming where a metric came from.
func scope(labels map[string]string) string {
	for _, key := range []string{"unit", "backend", "kind"} {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	if operation == MetricStageExecution {
		pm.stageLatency.WithLabelValues(labelOr(labels, "unit"), labelOr(labels, "status")).
			Observe(duration.Seconds())
		return
	}
	pm.operationLatency.WithLabelValues(operation, scope(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricStageRuns:
		pm.stageRuns.WithLabelValues(labelOr(labels, "unit"), labelOr(labels, "status")).Add(value)
	case MetricStorageRequests:
		pm.storageRequests.WithLabelValues(
			labelOr(labels, "backend"),
			labelOr(labels, "operation"),
			labelOr(labels, "status"),
		).Add(value)
	case MetricCandidatesTrained:
		pm.candidatesTrained.WithLabelValues(labelOr(labels, "kind")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, scope(labels)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	if metric == MetricChampionTest {
		pm.championMetric.WithLabelValues(labelOr(labels, "metric"), labelOr(labels, "model")).Set(value)
		return
	}
	pm.systemGauges.WithLabelValues(metric, scope(labels)).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == MetricStorageLatency {
		pm.storageLatency.WithLabelValues(
			labelOr(labels, "backend"),
			labelOr(labels, "operation"),
			labelOr(labels, "status"),
		).Observe(value)
		return
	}
	pm.operationLatency.WithLabelValues(metric, scope(labels)).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
