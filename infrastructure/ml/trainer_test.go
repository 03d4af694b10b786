package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/testutils"
)

func fastSpecs(t *testing.T) []domain.CandidateSpec {
	t.Helper()
	logreg, err := domain.NewCandidateSpec("logreg", domain.KindLogisticRegression)
	require.NoError(t, err)

	rf, err := domain.NewCandidateSpec("rf", domain.KindRandomForest)
	require.NoError(t, err)
	rf.RandomForest.NEstimators = 25
	rf.RandomForest.MaxDepth = 6
	rf.RandomForest.MinSamplesLeaf = 5

	gb, err := domain.NewCandidateSpec("xgb", domain.KindGradientBoosting)
	require.NoError(t, err)
	gb.GradientBoosting.NEstimators = 40
	gb.GradientBoosting.LearningRate = 0.1
	gb.GradientBoosting.Subsample = 0.8

	return []domain.CandidateSpec{logreg, rf, gb}
}

func splitDataset(t *testing.T, ds *domain.Dataset) (train, test *domain.Dataset) {
	t.Helper()
	labels, err := ds.Labels()
	require.NoError(t, err)
	trainIdx, testIdx, err := StratifiedSplit(labels, 0.25, 1)
	require.NoError(t, err)
	return ds.Subset(trainIdx), ds.Subset(testIdx)
}

func TestTrainer_FitAllKinds(t *testing.T) {
	train, test := splitDataset(t, testutils.GenerateCreditDataset(800, 42))
	testLabels, err := test.Labels()
	require.NoError(t, err)

	for _, spec := range fastSpecs(t) {
		t.Run(string(spec.Kind), func(t *testing.T) {
			model, err := NewTrainer().Fit(context.Background(), spec, testutils.CreditFeatureGroups(), train)
			require.NoError(t, err)
			assert.Equal(t, spec.Kind, model.Kind())

			scores, err := model.PredictProba(context.Background(), test)
			require.NoError(t, err)
			require.Len(t, scores, test.Len())
			for _, s := range scores {
				require.GreaterOrEqual(t, s, 0.0)
				require.LessOrEqual(t, s, 1.0)
			}

			auc, err := AUCROC(scores, testLabels)
			require.NoError(t, err)
			assert.Greater(t, auc, 0.6, "model should learn the synthetic risk signal")
		})
	}
}

func TestTrainer_Deterministic(t *testing.T) {
	ds := testutils.GenerateCreditDataset(300, 3)
	spec := fastSpecs(t)[1]

	a, err := NewTrainer().Fit(context.Background(), spec, testutils.CreditFeatureGroups(), ds)
	require.NoError(t, err)
	b, err := NewTrainer().Fit(context.Background(), spec, testutils.CreditFeatureGroups(), ds)
	require.NoError(t, err)

	sa, err := a.PredictProba(context.Background(), ds)
	require.NoError(t, err)
	sb, err := b.PredictProba(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestTrainer_Errors(t *testing.T) {
	ds := testutils.GenerateCreditDataset(50, 1)

	t.Run("no features", func(t *testing.T) {
		spec := fastSpecs(t)[0]
		_, err := NewTrainer().Fit(context.Background(), spec, domain.FeatureGroups{}, ds)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("missing params", func(t *testing.T) {
		spec := domain.CandidateSpec{Name: "rf", Kind: domain.KindRandomForest}
		_, err := NewTrainer().Fit(context.Background(), spec, testutils.CreditFeatureGroups(), ds)
		assert.Error(t, err)
	})

	t.Run("unknown column", func(t *testing.T) {
		spec := fastSpecs(t)[0]
		_, err := NewTrainer().Fit(context.Background(), spec, domain.FeatureGroups{Numeric: []string{"Salary"}}, ds)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewTrainer().Fit(ctx, fastSpecs(t)[2], testutils.CreditFeatureGroups(), ds)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCrossValidate(t *testing.T) {
	ds := testutils.GenerateCreditDataset(400, 11)
	spec := fastSpecs(t)[0]

	res, err := CrossValidate(context.Background(), NewTrainer(), spec, testutils.CreditFeatureGroups(), ds, 5, 42, 2)
	require.NoError(t, err)

	assert.Len(t, res.FoldAUC, 5)
	assert.Greater(t, res.Mean, 0.6)
	assert.GreaterOrEqual(t, res.Std, 0.0)
	assert.Less(t, res.Std, 0.2)
}
