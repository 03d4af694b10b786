// Package ml implements the classifiers trained by the workflow and the
// feature preprocessing they are fitted inside, on top of gonum.
package ml

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// AUCROC returns the area under the ROC curve of scores against labels.
// With a single class present the curve is undefined and 0.5 is returned.
func AUCROC(scores []float64, labels []bool) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("auc: %d scores for %d labels", len(scores), len(labels))
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("auc: no samples")
	}

	var pos int
	for _, l := range labels {
		if l {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return 0.5, nil
	}

	y := slices.Clone(scores)
	classes := slices.Clone(labels)
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// confusion counts predictions at a probability threshold.
type confusion struct {
	tp, fp, tn, fn float64
}

func newConfusion(scores []float64, labels []bool, threshold float64) confusion {
	var c confusion
	for i, s := range scores {
		predicted := s >= threshold
		switch {
		case predicted && labels[i]:
			c.tp++
		case predicted && !labels[i]:
			c.fp++
		case !predicted && labels[i]:
			c.fn++
		default:
			c.tn++
		}
	}
	return c
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func f1(precision, recall float64) float64 {
	return safeDiv(2*precision*recall, precision+recall)
}

// ClassificationMetrics computes the metric set recorded for every
// candidate: AUC, accuracy, and precision, recall and F1 for the positive
// class plus their macro and support-weighted averages.
func ClassificationMetrics(scores []float64, labels []bool, threshold float64) (domain.Metrics, error) {
	auc, err := AUCROC(scores, labels)
	if err != nil {
		return nil, err
	}

	c := newConfusion(scores, labels, threshold)
	n := c.tp + c.fp + c.tn + c.fn

	posPrecision := safeDiv(c.tp, c.tp+c.fp)
	posRecall := safeDiv(c.tp, c.tp+c.fn)
	posF1 := f1(posPrecision, posRecall)

	negPrecision := safeDiv(c.tn, c.tn+c.fn)
	negRecall := safeDiv(c.tn, c.tn+c.fp)
	negF1 := f1(negPrecision, negRecall)

	posSupport := safeDiv(c.tp+c.fn, n)
	negSupport := safeDiv(c.tn+c.fp, n)

	return domain.Metrics{
		domain.MetricAUCROC:    auc,
		domain.MetricAccuracy:  safeDiv(c.tp+c.tn, n),
		domain.MetricPrecision: posPrecision,
		domain.MetricRecall:    posRecall,
		domain.MetricF1:        posF1,
		"precision_macro":      (posPrecision + negPrecision) / 2,
		"recall_macro":         (posRecall + negRecall) / 2,
		"f1_macro":             (posF1 + negF1) / 2,
		"precision_weighted":   posSupport*posPrecision + negSupport*negPrecision,
		"recall_weighted":      posSupport*posRecall + negSupport*negRecall,
		"f1_weighted":          posSupport*posF1 + negSupport*negF1,
	}, nil
}
