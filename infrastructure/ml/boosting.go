package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// GradientBoosting is a fitted log-loss boosted ensemble of regression
// trees. Scores are log-odds until passed through the sigmoid.
type GradientBoosting struct {
	Init         float64 `json:"init"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

// FitGradientBoosting fits params.NEstimators rounds of Newton boosting.
// Each round fits a tree to the log-loss residuals of an optional row
// subsample.
func FitGradientBoosting(ctx context.Context, x [][]float64, y []bool, params domain.GradientBoostingParams) (*GradientBoosting, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("gradient boosting: %d rows for %d labels", len(x), len(y))
	}

	var positives float64
	for _, l := range y {
		if l {
			positives++
		}
	}
	prior := math.Min(math.Max(positives/float64(len(y)), 1e-6), 1-1e-6)

	model := &GradientBoosting{
		Init:         math.Log(prior / (1 - prior)),
		LearningRate: params.LearningRate,
		Trees:        make([]Tree, 0, params.NEstimators),
	}

	score := make([]float64, len(x))
	for i := range score {
		score[i] = model.Init
	}
	residual := make([]float64, len(x))
	hess := make([]float64, len(x))
	rows := make([]int, len(x))
	for i := range rows {
		rows[i] = i
	}
	sampleSize := max(1, int(math.Round(params.Subsample*float64(len(x)))))

	rng := rand.New(rand.NewPCG(params.RandomState, 0xb005))
	b := &treeBuilder{
		x:              x,
		target:         residual,
		hess:           hess,
		criterion:      newtonCriterion{},
		maxDepth:       params.MaxDepth,
		minSamplesLeaf: 1,
		rng:            rng,
	}

	for round := 0; round < params.NEstimators; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range x {
			p := sigmoid(score[i])
			residual[i] = 0 - p
			if y[i] {
				residual[i] = 1 - p
			}
			hess[i] = p * (1 - p)
		}

		sample := rows
		if sampleSize < len(rows) {
			rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
			sample = rows[:sampleSize]
		}

		tree := b.build(sample)
		for i, row := range x {
			score[i] += model.LearningRate * tree.Predict(row)
		}
		model.Trees = append(model.Trees, tree)
	}
	return model, nil
}

// Predict returns the positive-class probability of row.
func (m *GradientBoosting) Predict(row []float64) float64 {
	score := m.Init
	for i := range m.Trees {
		score += m.LearningRate * m.Trees[i].Predict(row)
	}
	return sigmoid(score)
}
