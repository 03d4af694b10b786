package ml

import (
	"context"
	"fmt"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Trainer fits preprocessing pipelines for the supported model kinds.
type Trainer struct{}

var _ ports.ModelTrainer = Trainer{}

// NewTrainer creates a Trainer.
func NewTrainer() Trainer { return Trainer{} }

// Fit implements ports.ModelTrainer. The preprocessor is learned from ds
// alone, so cross-validation folds never see validation rows.
func (Trainer) Fit(ctx context.Context, spec domain.CandidateSpec, features domain.FeatureGroups, ds *domain.Dataset) (ports.Classifier, error) {
	labels, err := ds.Labels()
	if err != nil {
		return nil, err
	}
	pre, err := FitPreprocessor(features, ds, labels)
	if err != nil {
		return nil, fmt.Errorf("candidate %q: %w", spec.Name, err)
	}
	x, err := pre.Transform(ds)
	if err != nil {
		return nil, fmt.Errorf("candidate %q: %w", spec.Name, err)
	}

	params, err := spec.Params()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{ModelKind: spec.Kind, Preprocessor: pre}
	switch params := params.(type) {
	case domain.LogRegParams:
		p.LogReg, err = FitLogisticRegression(ctx, x, labels, params)
	case domain.RandomForestParams:
		p.Forest, err = FitRandomForest(ctx, x, labels, params)
	case domain.GradientBoostingParams:
		p.Boosting, err = FitGradientBoosting(ctx, x, labels, params)
	default:
		err = fmt.Errorf("%w: %T", domain.ErrUnknownModelKind, params)
	}
	if err != nil {
		return nil, fmt.Errorf("candidate %q: %w", spec.Name, err)
	}
	return p, nil
}
