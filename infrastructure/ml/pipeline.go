package ml

import (
	"context"
	"fmt"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Pipeline is a fitted preprocessor followed by one fitted model. Exactly
// one of the model fields is set, the one matching ModelKind.
type Pipeline struct {
	ModelKind    domain.ModelKind    `json:"kind"`
	Preprocessor *Preprocessor       `json:"preprocessor"`
	LogReg       *LogisticRegression `json:"logistic_regression,omitempty"`
	Forest       *RandomForest       `json:"random_forest,omitempty"`
	Boosting     *GradientBoosting   `json:"gradient_boosting,omitempty"`
}

var _ ports.Classifier = (*Pipeline)(nil)

// Kind implements ports.Classifier.
func (p *Pipeline) Kind() domain.ModelKind { return p.ModelKind }

func (p *Pipeline) predictor() (func([]float64) float64, error) {
	switch p.ModelKind {
	case domain.KindLogisticRegression:
		if p.LogReg != nil {
			return p.LogReg.Predict, nil
		}
	case domain.KindRandomForest:
		if p.Forest != nil {
			return p.Forest.Predict, nil
		}
	case domain.KindGradientBoosting:
		if p.Boosting != nil {
			return p.Boosting.Predict, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownModelKind, p.ModelKind)
	}
	return nil, fmt.Errorf("pipeline of kind %s has no fitted model", p.ModelKind)
}

// PredictProba implements ports.Classifier.
func (p *Pipeline) PredictProba(ctx context.Context, ds *domain.Dataset) ([]float64, error) {
	predict, err := p.predictor()
	if err != nil {
		return nil, err
	}
	if p.Preprocessor == nil {
		return nil, fmt.Errorf("pipeline has no preprocessor")
	}
	x, err := p.Preprocessor.Transform(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to transform features: %w", err)
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = predict(row)
	}
	return out, nil
}
