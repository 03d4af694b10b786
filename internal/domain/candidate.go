package domain

import (
	"maps"
	"slices"
	"time"
)

// Well-known metric names produced by the training and evaluation stages.
// Metrics is open-ended, so any other name may appear as well.
const (
	MetricAUCROC    = "auc_roc"
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricF1        = "f1"
	MetricCVAUCMean = "cv_auc_mean"
	MetricCVAUCStd  = "cv_auc_std"
)

// Metrics maps metric names to values. Lookups of absent names yield 0,
// which ranks a candidate missing a metric as the worst possible on it.
type Metrics map[string]float64

// Get returns the named metric, or 0 when it is absent.
func (m Metrics) Get(name string) float64 { return m[name] }

// Has reports whether the metric was recorded.
func (m Metrics) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// AUCROC returns the area under the ROC curve.
func (m Metrics) AUCROC() float64 { return m.Get(MetricAUCROC) }

// Accuracy returns the accuracy.
func (m Metrics) Accuracy() float64 { return m.Get(MetricAccuracy) }

// Precision returns the precision of the positive class.
func (m Metrics) Precision() float64 { return m.Get(MetricPrecision) }

// Recall returns the recall of the positive class.
func (m Metrics) Recall() float64 { return m.Get(MetricRecall) }

// F1 returns the F1 score of the positive class.
func (m Metrics) F1() float64 { return m.Get(MetricF1) }

// CVAUCMean returns the mean cross-validated AUC.
func (m Metrics) CVAUCMean() float64 { return m.Get(MetricCVAUCMean) }

// CVAUCStd returns the standard deviation of the cross-validated AUC.
func (m Metrics) CVAUCStd() float64 { return m.Get(MetricCVAUCStd) }

// Clone returns an independent copy. A nil map stays nil.
func (m Metrics) Clone() Metrics { return maps.Clone(m) }

// Names returns the recorded metric names in sorted order.
func (m Metrics) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// Candidate is a trained model together with its evaluation metrics and
// the reference to its stored artifact.
type Candidate struct {
	// Model identifies the candidate within a selection call, for example
	// "random_forest".
	Model string `json:"model"`

	// Metrics holds the evaluation metrics computed for this candidate.
	Metrics Metrics `json:"metrics"`

	// ModelURI locates the stored artifact. The selector never
	// dereferences it.
	ModelURI string `json:"model_uri"`

	// RunID is the training run the candidate was registered under.
	RunID string `json:"run_id,omitempty"`

	// Kind is the model family that produced the candidate.
	Kind ModelKind `json:"kind,omitempty"`

	// Version is the registry version of the artifact.
	Version int `json:"version,omitempty"`

	// RegisteredAt is when the artifact was registered.
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}
