package ml

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// CVResult holds the per-fold validation AUCs of a cross-validation.
type CVResult struct {
	FoldAUC []float64
	Mean    float64
	Std     float64
}

// CrossValidate fits spec on each stratified fold's training rows and
// scores AUC on its validation rows. Folds run in parallel, at most
// parallelism at a time (0 means unlimited).
func CrossValidate(
	ctx context.Context,
	trainer ports.ModelTrainer,
	spec domain.CandidateSpec,
	features domain.FeatureGroups,
	ds *domain.Dataset,
	k int,
	seed uint64,
	parallelism int,
) (CVResult, error) {
	labels, err := ds.Labels()
	if err != nil {
		return CVResult{}, err
	}
	folds, err := StratifiedKFold(labels, k, seed)
	if err != nil {
		return CVResult{}, err
	}

	aucs := make([]float64, len(folds))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, fold := range folds {
		g.Go(func() error {
			model, err := trainer.Fit(ctx, spec, features, ds.Subset(fold.Train))
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			validation := ds.Subset(fold.Validation)
			scores, err := model.PredictProba(ctx, validation)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			truth := make([]bool, len(fold.Validation))
			for j, idx := range fold.Validation {
				truth[j] = labels[idx]
			}
			aucs[i], err = AUCROC(scores, truth)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return CVResult{}, err
	}

	mean, err := stats.Mean(aucs)
	if err != nil {
		return CVResult{}, err
	}
	std, err := stats.StandardDeviationPopulation(aucs)
	if err != nil {
		return CVResult{}, err
	}
	return CVResult{FoldAUC: aucs, Mean: mean, Std: std}, nil
}
