package ml

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// LogisticRegression is a fitted L2-regularised logistic regression.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logLoss returns -log(sigmoid(z)) for a positive and -log(1-sigmoid(z))
// for a negative label without overflowing.
func logLoss(z float64, positive bool) float64 {
	if !positive {
		z = -z
	}
	if z > 0 {
		return math.Log1p(math.Exp(-z))
	}
	return -z + math.Log1p(math.Exp(z))
}

// FitLogisticRegression minimises the mean log-loss plus ‖w‖²/(2·C·n) with
// L-BFGS. The bias is not penalised.
func FitLogisticRegression(ctx context.Context, x [][]float64, y []bool, params domain.LogRegParams) (*LogisticRegression, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("logistic regression: %d rows for %d labels", len(x), len(y))
	}
	width := len(x[0])
	n := float64(len(x))
	penalty := 1 / (2 * params.C * n)

	objective := func(theta []float64) float64 {
		w, b := theta[:width], theta[width]
		var loss float64
		for i, row := range x {
			loss += logLoss(floats.Dot(w, row)+b, y[i])
		}
		return loss/n + penalty*floats.Dot(w, w)
	}
	gradient := func(grad, theta []float64) {
		w, b := theta[:width], theta[width]
		for i := range grad {
			grad[i] = 0
		}
		gw := grad[:width]
		for i, row := range x {
			residual := sigmoid(floats.Dot(w, row) + b)
			if y[i] {
				residual--
			}
			floats.AddScaled(gw, residual/n, row)
			grad[width] += residual / n
		}
		floats.AddScaled(gw, 2*penalty, w)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	problem := optimize.Problem{Func: objective, Grad: gradient}
	settings := &optimize.Settings{
		GradientThreshold: params.Tol,
		MajorIterations:   params.MaxIter,
	}
	result, err := optimize.Minimize(problem, make([]float64, width+1), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("logistic regression: %w", err)
	}
	// Hitting the iteration limit or a flat line search still leaves a
	// usable optimum, as with lbfgs convergence warnings.
	theta := result.X
	for _, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("logistic regression diverged")
		}
	}
	return &LogisticRegression{Weights: theta[:width:width], Bias: theta[width]}, nil
}

// Predict returns the positive-class probability of one feature vector.
func (m *LogisticRegression) Predict(row []float64) float64 {
	return sigmoid(floats.Dot(m.Weights, row) + m.Bias)
}
