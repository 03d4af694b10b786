package ports

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=mocks/mock_infrastructure.go -package=mocks . BlobStore,Classifier,ModelTrainer,ModelRegistry

import (
	"context"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// BlobStore is a flat key/value object store. Keys use forward slashes as
// separators regardless of backend. Implementations include the local
// filesystem, Azure Blob Storage and memory.
type BlobStore interface {
	// Get returns the object stored under key. A missing object yields an
	// error matching ErrBlobNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys beginning with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Backend names the implementation, for logs and metric labels.
	Backend() string
}

// Classifier is a fitted binary classifier together with the feature
// preprocessing it was trained with. It consumes raw datasets.
type Classifier interface {
	// Kind returns the model family.
	Kind() domain.ModelKind

	// PredictProba returns the probability of the positive class for every
	// row of ds.
	PredictProba(ctx context.Context, ds *domain.Dataset) ([]float64, error)
}

// ModelTrainer fits classifiers from candidate specs.
type ModelTrainer interface {
	// Fit trains spec on ds using the feature groups for preprocessing.
	Fit(ctx context.Context, spec domain.CandidateSpec, features domain.FeatureGroups, ds *domain.Dataset) (Classifier, error)
}

// ModelCodec serialises fitted classifiers to registry artifacts.
type ModelCodec interface {
	Encode(model Classifier) ([]byte, error)
	Decode(data []byte) (Classifier, error)
}

// Registration describes a trained model to register.
type Registration struct {
	// RunID is the training run the model belongs to. Required.
	RunID string

	// Name is the candidate name; the registered model is named
	// credit_model_<Name>.
	Name string

	// Kind is the model family.
	Kind domain.ModelKind

	// Metrics are the training metrics recorded with the version.
	Metrics domain.Metrics

	// Model is the fitted classifier to store.
	Model Classifier
}

// ModelRegistry versions fitted models and lists the candidates of a run.
type ModelRegistry interface {
	// Register stores the model as the next version of its registered
	// name and returns the resulting candidate, including its URI.
	Register(ctx context.Context, reg Registration) (domain.Candidate, error)

	// ListCandidates returns the candidates registered under runID in
	// registration order. An unknown run yields an empty list.
	ListCandidates(ctx context.Context, runID string) ([]domain.Candidate, error)

	// Load resolves a model URI and decodes the classifier behind it.
	Load(ctx context.Context, uri string) (Classifier, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// StageObserver is notified around every unit execution. Implementations
// must be safe for concurrent use.
type StageObserver interface {
	// StageStarted is called before the unit runs and may return a derived
	// context, for example one carrying a tracing span.
	StageStarted(ctx context.Context, unitID string) context.Context

	// StageFinished is called after the unit returns, with its error if
	// any.
	StageFinished(ctx context.Context, unitID string, duration time.Duration, err error)
}
