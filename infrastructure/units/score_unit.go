package units

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

var _ ports.Unit = (*ScoreUnit)(nil)

// ScoreUnit loads the champion from the registry, scores it on the test
// set and persists the test metrics and the champion pointer. The report
// is stored under domain.KeyReport.
type ScoreUnit struct {
	name      string
	config    ScoreConfig
	registry  ports.ModelRegistry
	store     ports.BlobStore
	collector ports.MetricsCollector
	now       func() time.Time
}

// ScoreConfig defines the parameters of a score stage. Output keys may
// contain {run_id}, which is replaced by the run ID.
type ScoreConfig struct {
	// DecisionThreshold converts probabilities to labels.
	DecisionThreshold float64 `mapstructure:"decision_threshold" yaml:"decision_threshold" validate:"gt=0,lt=1"`

	// MetricsKey is where the test metrics JSON is written.
	MetricsKey string `mapstructure:"metrics_key" yaml:"metrics_key" validate:"required"`

	// PointerKey is where the champion model URI is written as plain text.
	PointerKey string `mapstructure:"pointer_key" yaml:"pointer_key" validate:"required"`
}

// DefaultScoreConfig returns a ScoreConfig with sensible defaults.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		DecisionThreshold: 0.5,
		MetricsKey:        "runs/{run_id}/evaluation/metrics.json",
		PointerKey:        "runs/{run_id}/evaluation/best_model_uri.txt",
	}
}

// NewScoreUnit creates a ScoreUnit. collector may be nil.
func NewScoreUnit(
	name string,
	config ScoreConfig,
	registry ports.ModelRegistry,
	store ports.BlobStore,
	collector ports.MetricsCollector,
) (*ScoreUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if registry == nil || store == nil {
		return nil, fmt.Errorf("score unit %q: registry and blob store: %w", name, ErrMissingDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ScoreUnit{
		name:      name,
		config:    config,
		registry:  registry,
		store:     store,
		collector: collector,
		now:       time.Now,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ScoreUnit) Name() string { return u.name }

// Execute scores the champion and writes the evaluation outputs.
func (u *ScoreUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	runID, err := requireRunID(state)
	if err != nil {
		return state, err
	}
	champion, err := requireInput(state, domain.KeyChampion)
	if err != nil {
		return state, err
	}
	test, err := requireInput(state, domain.KeyTestData)
	if err != nil {
		return state, err
	}

	model, err := u.registry.Load(ctx, champion.ModelURI)
	if err != nil {
		return state, fmt.Errorf("failed to load champion %q: %w", champion.ModelURI, err)
	}
	metrics, err := Score(ctx, model, test, u.config.DecisionThreshold)
	if err != nil {
		return state, fmt.Errorf("failed to score champion %q: %w", champion.Model, err)
	}

	report := &domain.EvaluationReport{
		RunID:             runID,
		Champion:          *champion,
		TestMetrics:       metrics,
		DecisionThreshold: u.config.DecisionThreshold,
		TestRows:          test.Len(),
		EvaluatedAt:       u.now().UTC(),
	}
	if decision, ok := domain.Get(state, domain.KeyDecision); ok && decision != nil {
		report.Decision = *decision
	}

	if err := WriteEvaluation(ctx, u.store, u.config, report); err != nil {
		return state, err
	}

	if u.collector != nil {
		for _, name := range metrics.Names() {
			u.collector.RecordGauge("champion_test_metric", metrics[name], map[string]string{
				"metric": name,
				"model":  champion.Model,
			})
		}
	}
	slog.InfoContext(ctx, "champion scored",
		"unit", u.name,
		"run_id", runID,
		"champion", champion.Model,
		"model_uri", champion.ModelURI,
		"test_rows", test.Len(),
		"auc_roc", metrics.AUCROC())

	return domain.With(state, domain.KeyReport, report), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *ScoreUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// WriteEvaluation persists the test metrics as indented JSON and the
// champion URI as a plain-text pointer file.
func WriteEvaluation(ctx context.Context, store ports.BlobStore, config ScoreConfig, report *domain.EvaluationReport) error {
	data, err := json.MarshalIndent(report.TestMetrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode test metrics: %w", err)
	}
	metricsKey := expandRunKey(config.MetricsKey, report.RunID)
	if err := store.Put(ctx, metricsKey, data); err != nil {
		return fmt.Errorf("failed to write test metrics: %w", err)
	}
	pointerKey := expandRunKey(config.PointerKey, report.RunID)
	if err := store.Put(ctx, pointerKey, []byte(report.Champion.ModelURI)); err != nil {
		return fmt.Errorf("failed to write champion pointer: %w", err)
	}
	return nil
}

// CreateScoreUnit is a factory function that creates a ScoreUnit from a
// configuration map, following the UnitFactory pattern.
func CreateScoreUnit(
	id string,
	config map[string]any,
	registry ports.ModelRegistry,
	store ports.BlobStore,
	collector ports.MetricsCollector,
) (*ScoreUnit, error) {
	cfg := DefaultScoreConfig()
	if err := decodeParams(config, &cfg); err != nil {
		return nil, err
	}
	return NewScoreUnit(id, cfg, registry, store, collector)
}
