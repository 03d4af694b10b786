package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// RandomForest is a fitted bagged ensemble of classification trees.
type RandomForest struct {
	Trees []Tree `json:"trees"`
}

func maxFeatureCount(setting string, width int) int {
	switch setting {
	case "all":
		return width
	case "log2":
		return max(1, int(math.Log2(float64(width))))
	default:
		return max(1, int(math.Sqrt(float64(width))))
	}
}

// FitRandomForest grows params.NEstimators Gini trees on bootstrap samples.
// Trees are grown in parallel; each draws from its own generator seeded
// from RandomState and its index, so results do not depend on scheduling.
func FitRandomForest(ctx context.Context, x [][]float64, y []bool, params domain.RandomForestParams) (*RandomForest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("random forest: %d rows for %d labels", len(x), len(y))
	}

	target := make([]float64, len(y))
	for i, l := range y {
		if l {
			target[i] = 1
		}
	}

	forest := &RandomForest{Trees: make([]Tree, params.NEstimators)}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for t := range forest.Trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(params.RandomState, uint64(t)))
			sample := make([]int, len(x))
			for i := range sample {
				sample[i] = rng.IntN(len(x))
			}
			b := &treeBuilder{
				x:              x,
				target:         target,
				criterion:      giniCriterion{},
				maxDepth:       params.MaxDepth,
				minSamplesLeaf: params.MinSamplesLeaf,
				maxFeatures:    maxFeatureCount(params.MaxFeatures, len(x[0])),
				rng:            rng,
			}
			forest.Trees[t] = b.build(sample)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

// Predict returns the mean positive rate of the leaves row reaches.
func (f *RandomForest) Predict(row []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(row)
	}
	return sum / float64(len(f.Trees))
}
