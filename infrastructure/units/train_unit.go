package units

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/ml"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

var _ ports.Unit = (*TrainUnit)(nil)

// TrainUnit fits every configured candidate on the training set,
// cross-validates it, and registers the fitted pipeline under the run ID.
// The registered candidates are stored under domain.KeyCandidates in
// configuration order.
type TrainUnit struct {
	name      string
	config    TrainConfig
	specs     []domain.CandidateSpec
	trainer   ports.ModelTrainer
	registry  ports.ModelRegistry
	collector ports.MetricsCollector
}

// CandidateConfig names one model to train. Params overlays the defaults
// of the kind's parameter struct.
type CandidateConfig struct {
	Name   string         `mapstructure:"name" yaml:"name" validate:"required"`
	Kind   string         `mapstructure:"kind" yaml:"kind" validate:"required"`
	Params map[string]any `mapstructure:"params" yaml:"params"`
}

// TrainConfig defines the parameters of a train stage.
type TrainConfig struct {
	// Candidates lists the models to train. Empty trains the default set.
	Candidates []CandidateConfig `mapstructure:"candidates" yaml:"candidates" validate:"dive"`

	// Features assigns columns to preprocessing groups.
	Features domain.FeatureGroups `mapstructure:"features" yaml:"features"`

	// CVFolds is the number of stratified folds. Zero skips
	// cross-validation.
	CVFolds int `mapstructure:"cv_folds" yaml:"cv_folds" validate:"eq=0|min=2,max=20"`

	// Parallelism bounds how many candidates train at once. Zero means
	// one per candidate.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism" validate:"min=0"`

	// Seed drives the fold assignment.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`

	// DecisionThreshold converts probabilities to labels for the
	// threshold-based training metrics.
	DecisionThreshold float64 `mapstructure:"decision_threshold" yaml:"decision_threshold" validate:"gt=0,lt=1"`
}

// DefaultCandidates is the candidate set trained when none is configured.
func DefaultCandidates() []CandidateConfig {
	return []CandidateConfig{
		{Name: "random_forest", Kind: string(domain.KindRandomForest)},
		{Name: "log_reg", Kind: string(domain.KindLogisticRegression)},
		{Name: "xgb", Kind: string(domain.KindGradientBoosting)},
	}
}

// DefaultTrainConfig returns a TrainConfig with sensible defaults.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		CVFolds:           5,
		Seed:              42,
		DecisionThreshold: 0.5,
	}
}

// BuildCandidateSpecs resolves candidate configurations into typed specs,
// rejecting unknown kinds, bad parameters and duplicate names.
func BuildCandidateSpecs(candidates []CandidateConfig) ([]domain.CandidateSpec, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	specs := make([]domain.CandidateSpec, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate candidate name %q", c.Name)
		}
		seen[c.Name] = true

		kind, err := domain.ParseModelKind(c.Kind)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: %w", c.Name, err)
		}
		spec, err := domain.NewCandidateSpec(c.Name, kind)
		if err != nil {
			return nil, err
		}

		var params any
		switch kind {
		case domain.KindLogisticRegression:
			params = spec.LogReg
		case domain.KindRandomForest:
			params = spec.RandomForest
		case domain.KindGradientBoosting:
			params = spec.GradientBoosting
		}
		if err := decodeParams(c.Params, params); err != nil {
			return nil, fmt.Errorf("candidate %q: %w", c.Name, err)
		}
		if err := validate.Struct(params); err != nil {
			return nil, fmt.Errorf("candidate %q: parameter validation failed: %w", c.Name, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// NewTrainUnit creates a TrainUnit. collector may be nil.
func NewTrainUnit(
	name string,
	config TrainConfig,
	trainer ports.ModelTrainer,
	registry ports.ModelRegistry,
	collector ports.MetricsCollector,
) (*TrainUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if trainer == nil || registry == nil {
		return nil, fmt.Errorf("train unit %q: trainer and registry: %w", name, ErrMissingDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	specs, err := BuildCandidateSpecs(config.Candidates)
	if err != nil {
		return nil, err
	}
	return &TrainUnit{
		name:      name,
		config:    config,
		specs:     specs,
		trainer:   trainer,
		registry:  registry,
		collector: collector,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *TrainUnit) Name() string { return u.name }

// Specs returns the resolved candidate specs in training order.
func (u *TrainUnit) Specs() []domain.CandidateSpec { return u.specs }

// Execute fits every candidate concurrently, then registers them one at a
// time in configuration order so the run's registry listing does not
// depend on which fit finished first. The first failure cancels the
// remaining fits.
func (u *TrainUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	runID, err := requireRunID(state)
	if err != nil {
		return state, err
	}
	train, err := requireInput(state, domain.KeyTrainData)
	if err != nil {
		return state, err
	}
	if train.Target == "" {
		return state, fmt.Errorf("training data has no target column: %w", domain.ErrInvalidConfiguration)
	}

	fits := make([]fittedCandidate, len(u.specs))
	g, gctx := errgroup.WithContext(ctx)
	if u.config.Parallelism > 0 {
		g.SetLimit(u.config.Parallelism)
	}
	for i, spec := range u.specs {
		g.Go(func() error {
			fit, err := u.fitOne(gctx, spec, train)
			if err != nil {
				return fmt.Errorf("candidate %q: %w", spec.Name, err)
			}
			fits[i] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return state, fmt.Errorf("training failed: %w", err)
	}

	candidates := make([]domain.Candidate, len(fits))
	for i, fit := range fits {
		candidate, err := u.register(ctx, runID, fit)
		if err != nil {
			return state, fmt.Errorf("training failed: candidate %q: %w", fit.spec.Name, err)
		}
		candidates[i] = candidate
	}

	slog.InfoContext(ctx, "candidates trained",
		"unit", u.name,
		"run_id", runID,
		"candidates", len(candidates))
	return domain.With(state, domain.KeyCandidates, candidates), nil
}

// fittedCandidate is a trained model awaiting registration.
type fittedCandidate struct {
	spec    domain.CandidateSpec
	model   ports.Classifier
	metrics domain.Metrics
	elapsed time.Duration
}

func (u *TrainUnit) fitOne(ctx context.Context, spec domain.CandidateSpec, train *domain.Dataset) (fittedCandidate, error) {
	start := time.Now()
	metrics := domain.Metrics{}

	if u.config.CVFolds > 0 {
		cv, err := ml.CrossValidate(ctx, u.trainer, spec, u.config.Features, train, u.config.CVFolds, u.config.Seed, 0)
		if err != nil {
			return fittedCandidate{}, fmt.Errorf("cross-validation: %w", err)
		}
		metrics[domain.MetricCVAUCMean] = cv.Mean
		metrics[domain.MetricCVAUCStd] = cv.Std
	}

	model, err := u.trainer.Fit(ctx, spec, u.config.Features, train)
	if err != nil {
		return fittedCandidate{}, err
	}
	trainMetrics, err := Score(ctx, model, train, u.config.DecisionThreshold)
	if err != nil {
		return fittedCandidate{}, err
	}
	for name, v := range trainMetrics {
		metrics[name] = v
	}
	return fittedCandidate{spec: spec, model: model, metrics: metrics, elapsed: time.Since(start)}, nil
}

func (u *TrainUnit) register(ctx context.Context, runID string, fit fittedCandidate) (domain.Candidate, error) {
	candidate, err := u.registry.Register(ctx, ports.Registration{
		RunID:   runID,
		Name:    fit.spec.Name,
		Kind:    fit.spec.Kind,
		Metrics: fit.metrics,
		Model:   fit.model,
	})
	if err != nil {
		return domain.Candidate{}, err
	}

	if u.collector != nil {
		labels := map[string]string{"kind": string(fit.spec.Kind)}
		u.collector.RecordCounter("candidates_trained_total", 1, labels)
		u.collector.RecordLatency("candidate_training", fit.elapsed, labels)
	}
	slog.DebugContext(ctx, "candidate registered",
		"unit", u.name,
		"run_id", runID,
		"candidate", fit.spec.Name,
		"model_uri", candidate.ModelURI,
		"auc_roc", fit.metrics.AUCROC(),
		"cv_auc_mean", fit.metrics.CVAUCMean())
	return candidate, nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *TrainUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if len(u.specs) == 0 {
		return fmt.Errorf("no candidates configured: %w", domain.ErrInvalidConfiguration)
	}
	return nil
}

// Score predicts ds with model and computes the classification metrics at
// threshold against the dataset's target column.
func Score(ctx context.Context, model ports.Classifier, ds *domain.Dataset, threshold float64) (domain.Metrics, error) {
	labels, err := ds.Labels()
	if err != nil {
		return nil, err
	}
	scores, err := model.PredictProba(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	return ml.ClassificationMetrics(scores, labels, threshold)
}

// CreateTrainUnit is a factory function that creates a TrainUnit from a
// configuration map, following the UnitFactory pattern.
func CreateTrainUnit(
	id string,
	config map[string]any,
	trainer ports.ModelTrainer,
	registry ports.ModelRegistry,
	collector ports.MetricsCollector,
) (*TrainUnit, error) {
	cfg := DefaultTrainConfig()
	if err := decodeParams(config, &cfg); err != nil {
		return nil, err
	}
	return NewTrainUnit(id, cfg, trainer, registry, collector)
}
