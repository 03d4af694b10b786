package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelKind
		wantErr bool
	}{
		{"logistic_regression", KindLogisticRegression, false},
		{"LogReg", KindLogisticRegression, false},
		{"log_reg", KindLogisticRegression, false},
		{"rf", KindRandomForest, false},
		{"xgb", KindGradientBoosting, false},
		{" gbm ", KindGradientBoosting, false},
		{"sklearn.svm.SVC", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownModelKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidateSpec_Params(t *testing.T) {
	for _, kind := range ModelKinds {
		t.Run(string(kind), func(t *testing.T) {
			spec, err := NewCandidateSpec("m", kind)
			require.NoError(t, err)
			p, err := spec.Params()
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}

	_, err := CandidateSpec{Name: "m", Kind: KindRandomForest}.Params()
	assert.Error(t, err)

	_, err = NewCandidateSpec("m", "svm")
	assert.ErrorIs(t, err, ErrUnknownModelKind)
}

func TestFeatureGroups_All(t *testing.T) {
	g := FeatureGroups{
		Numeric:         []string{"Age"},
		Categorical:     []string{"Housing"},
		HighCardinality: []string{"Purpose"},
	}
	assert.Equal(t, []string{"Age", "Housing", "Purpose"}, g.All())
	assert.False(t, g.Empty())
	assert.True(t, FeatureGroups{}.Empty())
}
