package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

func preprocessFixture() *domain.Dataset {
	return &domain.Dataset{
		Columns: []string{"Age", "Housing", "Purpose", "Job", "Risk"},
		Rows: [][]string{
			{"20", "own", "car", "1", "0"},
			{"30", "Own ", "car", "2", "1"},
			{"", "rent", "education", "", "1"},
			{"40", "", "car", "3", "0"},
		},
		Target: "Risk",
	}
}

func TestPreprocessor_FitTransform(t *testing.T) {
	ds := preprocessFixture()
	labels, err := ds.Labels()
	require.NoError(t, err)

	groups := domain.FeatureGroups{
		Numeric:         []string{"Age"},
		Categorical:     []string{"Housing"},
		HighCardinality: []string{"Purpose"},
		Passthrough:     []string{"Job"},
	}
	p, err := FitPreprocessor(groups, ds, labels)
	require.NoError(t, err)

	require.Len(t, p.Numeric, 1)
	assert.Equal(t, 30.0, p.Numeric[0].Median)
	assert.Equal(t, 30.0, p.Numeric[0].Mean)

	require.Len(t, p.Categorical, 1)
	assert.Equal(t, []string{"own", "rent"}, p.Categorical[0].Levels, "values are trimmed and case folded")
	assert.Equal(t, "own", p.Categorical[0].Mode)

	assert.Equal(t, 0.5, p.Target[0].Prior)
	// car: 1 positive of 3 rows, smoothed towards 0.5 with weight 10.
	assert.InDelta(t, (1+5.0)/13.0, p.Target[0].Encoding["car"], 1e-9)

	assert.Equal(t, 2.0, p.Passthrough[0].Median)
	assert.Equal(t, 5, p.Width())

	x, err := p.Transform(ds)
	require.NoError(t, err)
	require.Len(t, x, 4)

	// Missing age imputed by the median scales to zero.
	assert.InDelta(t, 0, x[2][0], 1e-9)
	// Missing housing imputed by the mode.
	assert.Equal(t, []float64{1, 0}, x[3][1:3])
	assert.Equal(t, []float64{0, 1}, x[2][1:3])
	// Missing job imputed by the median.
	assert.Equal(t, 2.0, x[2][4])
}

func TestPreprocessor_UnknownCategories(t *testing.T) {
	ds := preprocessFixture()
	labels, err := ds.Labels()
	require.NoError(t, err)
	p, err := FitPreprocessor(domain.FeatureGroups{
		Categorical:     []string{"Housing"},
		HighCardinality: []string{"Purpose"},
	}, ds, labels)
	require.NoError(t, err)

	unseen := &domain.Dataset{
		Columns: []string{"Purpose", "Housing"},
		Rows:    [][]string{{"yacht", "castle"}},
	}
	x, err := p.Transform(unseen)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0.5}, x[0])
}

func TestPreprocessor_Errors(t *testing.T) {
	ds := preprocessFixture()
	labels, _ := ds.Labels()

	_, err := FitPreprocessor(domain.FeatureGroups{Numeric: []string{"Housing"}}, ds, labels)
	assert.Error(t, err, "non-numeric column cannot be scaled")

	p, err := FitPreprocessor(domain.FeatureGroups{Numeric: []string{"Age"}}, ds, labels)
	require.NoError(t, err)
	_, err = p.Transform(&domain.Dataset{Columns: []string{"Other"}, Rows: [][]string{{"1"}}})
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
