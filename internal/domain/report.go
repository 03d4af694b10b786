package domain

import "time"

// EvaluationReport is the outcome of scoring the champion on held-out data.
type EvaluationReport struct {
	// RunID is the training run the champion came from.
	RunID string `json:"run_id"`

	// Champion is the selected candidate, with its training metrics.
	Champion Candidate `json:"champion"`

	// Decision is the selection trace.
	Decision Decision `json:"decision"`

	// TestMetrics are the champion's metrics on the test split.
	TestMetrics Metrics `json:"test_metrics"`

	// DecisionThreshold is the probability cut-off used for the
	// threshold-dependent metrics.
	DecisionThreshold float64 `json:"decision_threshold"`

	// TestRows is the size of the test split.
	TestRows int `json:"test_rows"`

	// EvaluatedAt is when scoring completed.
	EvaluatedAt time.Time `json:"evaluated_at"`
}
