package units

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/storage"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports/mocks"
)

func labelledTestSet() *domain.Dataset {
	return &domain.Dataset{
		Columns: []string{"x", "risk"},
		Rows:    [][]string{{"1", "1"}, {"2", "0"}, {"3", "1"}, {"4", "0"}},
		Target:  "risk",
	}
}

func TestScoreUnit_Execute(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockModelRegistry(ctrl)
	model := mocks.NewMockClassifier(ctrl)
	store := storage.NewMemoryStore()
	collector := newRecordingCollector()

	champion := domain.Candidate{Model: "xgb", ModelURI: "models:/credit_model_xgb/2"}
	test := labelledTestSet()

	// Given a champion whose model ranks the positives first
	reg.EXPECT().Load(gomock.Any(), champion.ModelURI).Return(model, nil)
	model.EXPECT().PredictProba(gomock.Any(), gomock.Any()).Return([]float64{0.9, 0.2, 0.6, 0.4}, nil)

	unit, err := NewScoreUnit("score", DefaultScoreConfig(), reg, store, collector)
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	unit.now = func() time.Time { return fixed }

	decision := &domain.Decision{Champion: champion, EligibleCount: 2}
	state := domain.With(runState(), domain.KeyChampion, &champion)
	state = domain.With(state, domain.KeyTestData, test)
	state = domain.With(state, domain.KeyDecision, decision)

	// When the unit executes
	out, err := unit.Execute(ctx, state)
	require.NoError(t, err)

	// Then the report carries the test metrics
	report, ok := domain.Get(out, domain.KeyReport)
	require.True(t, ok)
	assert.Equal(t, testRunID, report.RunID)
	assert.Equal(t, "xgb", report.Champion.Model)
	assert.Equal(t, 4, report.TestRows)
	assert.Equal(t, fixed, report.EvaluatedAt)
	assert.Equal(t, 2, report.Decision.EligibleCount)
	assert.InDelta(t, 1.0, report.TestMetrics.AUCROC(), 1e-12)
	assert.InDelta(t, 1.0, report.TestMetrics.Accuracy(), 1e-12)

	// And the metrics file and the pointer file are written
	data, err := store.Get(ctx, "runs/"+testRunID+"/evaluation/metrics.json")
	require.NoError(t, err)
	var written map[string]float64
	require.NoError(t, json.Unmarshal(data, &written))
	assert.InDelta(t, 1.0, written[domain.MetricAUCROC], 1e-12)

	pointer, err := store.Get(ctx, "runs/"+testRunID+"/evaluation/best_model_uri.txt")
	require.NoError(t, err)
	assert.Equal(t, champion.ModelURI, string(pointer))

	gauge, ok := collector.gauge("champion_test_metric", domain.MetricRecall)
	require.True(t, ok)
	assert.InDelta(t, 1.0, gauge, 1e-12)
}

func TestScoreUnit_CustomKeys(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockModelRegistry(ctrl)
	model := mocks.NewMockClassifier(ctrl)
	store := storage.NewMemoryStore()

	reg.EXPECT().Load(gomock.Any(), gomock.Any()).Return(model, nil)
	model.EXPECT().PredictProba(gomock.Any(), gomock.Any()).Return([]float64{0.4, 0.3, 0.6, 0.1}, nil)

	unit, err := CreateScoreUnit("score", map[string]any{
		"decision_threshold": 0.35,
		"metrics_key":        "outputs/{run_id}.json",
		"pointer_key":        "outputs/champion.txt",
	}, reg, store, nil)
	require.NoError(t, err)

	champion := domain.Candidate{Model: "log_reg", ModelURI: "models:/credit_model_log_reg/1"}
	state := domain.With(runState(), domain.KeyChampion, &champion)
	state = domain.With(state, domain.KeyTestData, labelledTestSet())

	out, err := unit.Execute(ctx, state)
	require.NoError(t, err)

	report, _ := domain.Get(out, domain.KeyReport)
	assert.InDelta(t, 0.35, report.DecisionThreshold, 1e-12)

	ok, err := store.Exists(ctx, "outputs/"+testRunID+".json")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Exists(ctx, "outputs/champion.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScoreUnit_Errors(t *testing.T) {
	champion := domain.Candidate{Model: "rf", ModelURI: "models:/credit_model_rf/9"}

	t.Run("champion not loadable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reg := mocks.NewMockModelRegistry(ctrl)
		reg.EXPECT().Load(gomock.Any(), champion.ModelURI).Return(nil, ports.ErrModelNotFound)

		unit, err := NewScoreUnit("score", DefaultScoreConfig(), reg, storage.NewMemoryStore(), nil)
		require.NoError(t, err)

		state := domain.With(runState(), domain.KeyChampion, &champion)
		state = domain.With(state, domain.KeyTestData, labelledTestSet())
		_, err = unit.Execute(context.Background(), state)
		assert.ErrorIs(t, err, ports.ErrModelNotFound)
	})

	t.Run("no champion selected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		unit, err := NewScoreUnit("score", DefaultScoreConfig(), mocks.NewMockModelRegistry(ctrl), storage.NewMemoryStore(), nil)
		require.NoError(t, err)

		state := domain.With(runState(), domain.KeyTestData, labelledTestSet())
		_, err = unit.Execute(context.Background(), state)
		assert.ErrorIs(t, err, ErrMissingInput)
	})

	t.Run("store failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		reg := mocks.NewMockModelRegistry(ctrl)
		model := mocks.NewMockClassifier(ctrl)
		store := mocks.NewMockBlobStore(ctrl)
		reg.EXPECT().Load(gomock.Any(), gomock.Any()).Return(model, nil)
		model.EXPECT().PredictProba(gomock.Any(), gomock.Any()).Return([]float64{0.9, 0.2, 0.6, 0.4}, nil)
		store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.ErrServiceUnavailable)

		unit, err := NewScoreUnit("score", DefaultScoreConfig(), reg, store, nil)
		require.NoError(t, err)

		state := domain.With(runState(), domain.KeyChampion, &champion)
		state = domain.With(state, domain.KeyTestData, labelledTestSet())
		_, err = unit.Execute(context.Background(), state)
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
		assert.Contains(t, err.Error(), "test metrics")
	})

	t.Run("threshold out of range", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		_, err := CreateScoreUnit("score", map[string]any{"decision_threshold": 1.0},
			mocks.NewMockModelRegistry(ctrl), storage.NewMemoryStore(), nil)
		require.Error(t, err)
	})
}
