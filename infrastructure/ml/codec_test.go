package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/testutils"
)

type foreignClassifier struct{}

func (foreignClassifier) Kind() domain.ModelKind { return domain.KindLogisticRegression }
func (foreignClassifier) PredictProba(context.Context, *domain.Dataset) ([]float64, error) {
	return nil, nil
}

func TestCodec_PreservesPredictions(t *testing.T) {
	ds := testutils.GenerateCreditDataset(200, 5)
	codec, err := NewCodec()
	require.NoError(t, err)

	for _, spec := range fastSpecs(t) {
		t.Run(string(spec.Kind), func(t *testing.T) {
			model, err := NewTrainer().Fit(context.Background(), spec, testutils.CreditFeatureGroups(), ds)
			require.NoError(t, err)

			data, err := codec.Encode(model)
			require.NoError(t, err)

			decoded, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, spec.Kind, decoded.Kind())

			want, err := model.PredictProba(context.Background(), ds)
			require.NoError(t, err)
			got, err := decoded.PredictProba(context.Background(), ds)
			require.NoError(t, err)
			assert.InDeltaSlice(t, want, got, 1e-12)
		})
	}
}

func TestCodec_Errors(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	_, err = codec.Encode(foreignClassifier{})
	assert.Error(t, err)

	_, err = codec.Decode([]byte("not zstd"))
	assert.ErrorIs(t, err, ports.ErrCorruptArtifact)

	_, err = codec.Decode(codec.encoder.EncodeAll([]byte(`{"format":"other","version":1}`), nil))
	assert.ErrorIs(t, err, ports.ErrCorruptArtifact)
}
