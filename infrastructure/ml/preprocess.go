package ml

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/stat"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// targetSmoothing is the pseudo-count that pulls a category's encoded value
// towards the global positive rate.
const targetSmoothing = 10.0

// normalizeCategory trims and case-folds a categorical value so that
// "Own", "own " and "OWN" encode identically. Casers are stateful, so each
// caller passes its own.
func normalizeCategory(fold cases.Caser, s string) string {
	return fold.String(strings.TrimSpace(s))
}

// NumericColumn is a median-imputed, standard-scaled feature.
type NumericColumn struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// CategoricalColumn is a mode-imputed, one-hot encoded feature. Values not
// seen during fitting encode as all zeros.
type CategoricalColumn struct {
	Name   string   `json:"name"`
	Mode   string   `json:"mode"`
	Levels []string `json:"levels"`
}

// TargetColumn is a mode-imputed, target-encoded feature.
type TargetColumn struct {
	Name     string             `json:"name"`
	Mode     string             `json:"mode"`
	Encoding map[string]float64 `json:"encoding"`
	Prior    float64            `json:"prior"`
}

// PassthroughColumn is used as parsed, with missing values imputed by the
// median.
type PassthroughColumn struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
}

// Preprocessor turns raw dataset rows into numeric feature vectors. Its
// fields are learned from the training split only.
type Preprocessor struct {
	Numeric     []NumericColumn     `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
	Target      []TargetColumn      `json:"target_encoded"`
	Passthrough []PassthroughColumn `json:"passthrough"`
}

// FitPreprocessor learns imputation, scaling and encoding parameters for
// the configured feature groups from ds.
func FitPreprocessor(groups domain.FeatureGroups, ds *domain.Dataset, labels []bool) (*Preprocessor, error) {
	if groups.Empty() {
		return nil, fmt.Errorf("no feature columns configured: %w", domain.ErrInvalidConfiguration)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("cannot fit preprocessor on an empty dataset: %w", domain.ErrEmptyValue)
	}

	p := &Preprocessor{}
	for _, name := range groups.Numeric {
		col, err := fitNumeric(ds, name)
		if err != nil {
			return nil, err
		}
		p.Numeric = append(p.Numeric, col)
	}
	for _, name := range groups.Categorical {
		col, err := fitCategorical(ds, name)
		if err != nil {
			return nil, err
		}
		p.Categorical = append(p.Categorical, col)
	}
	for _, name := range groups.HighCardinality {
		col, err := fitTarget(ds, name, labels)
		if err != nil {
			return nil, err
		}
		p.Target = append(p.Target, col)
	}
	for _, name := range groups.Passthrough {
		values, missing, err := ds.FloatColumn(name)
		if err != nil {
			return nil, err
		}
		p.Passthrough = append(p.Passthrough, PassthroughColumn{Name: name, Median: medianOf(values, missing)})
	}
	return p, nil
}

func present(values []float64, missing []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if !missing[i] {
			out = append(out, v)
		}
	}
	return out
}

func medianOf(values []float64, missing []bool) float64 {
	median, err := stats.Median(present(values, missing))
	if err != nil {
		return 0
	}
	return median
}

func fitNumeric(ds *domain.Dataset, name string) (NumericColumn, error) {
	values, missing, err := ds.FloatColumn(name)
	if err != nil {
		return NumericColumn{}, err
	}
	median := medianOf(values, missing)
	for i := range values {
		if missing[i] {
			values[i] = median
		}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		std = 1
	}
	return NumericColumn{Name: name, Median: median, Mean: mean, Std: std}, nil
}

// mode returns the most frequent normalized value, breaking count ties by
// lexical order.
func mode(raw []string) (string, map[string]int) {
	fold := cases.Fold()
	counts := make(map[string]int)
	for _, s := range raw {
		if domain.IsMissing(s) {
			continue
		}
		counts[normalizeCategory(fold, s)]++
	}
	best, bestCount := "", -1
	for _, level := range slices.Sorted(maps.Keys(counts)) {
		if counts[level] > bestCount {
			best, bestCount = level, counts[level]
		}
	}
	return best, counts
}

func fitCategorical(ds *domain.Dataset, name string) (CategoricalColumn, error) {
	raw, err := ds.Column(name)
	if err != nil {
		return CategoricalColumn{}, err
	}
	m, counts := mode(raw)
	levels := slices.Sorted(maps.Keys(counts))
	return CategoricalColumn{Name: name, Mode: m, Levels: levels}, nil
}

func fitTarget(ds *domain.Dataset, name string, labels []bool) (TargetColumn, error) {
	raw, err := ds.Column(name)
	if err != nil {
		return TargetColumn{}, err
	}
	if len(labels) != len(raw) {
		return TargetColumn{}, fmt.Errorf("target encoding %q: %d labels for %d rows", name, len(labels), len(raw))
	}
	m, _ := mode(raw)
	fold := cases.Fold()

	var positives float64
	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for i, s := range raw {
		level := m
		if !domain.IsMissing(s) {
			level = normalizeCategory(fold, s)
		}
		counts[level]++
		if labels[i] {
			sums[level]++
			positives++
		}
	}
	prior := positives / float64(len(raw))

	encoding := make(map[string]float64, len(counts))
	for level, n := range counts {
		encoding[level] = (sums[level] + targetSmoothing*prior) / (n + targetSmoothing)
	}
	return TargetColumn{Name: name, Mode: m, Encoding: encoding, Prior: prior}, nil
}

// Width returns the length of the produced feature vectors.
func (p *Preprocessor) Width() int {
	w := len(p.Numeric) + len(p.Target) + len(p.Passthrough)
	for _, c := range p.Categorical {
		w += len(c.Levels)
	}
	return w
}

// Transform encodes every row of ds. Columns are looked up by name, so ds
// may carry extra columns or a different column order than the training
// data.
func (p *Preprocessor) Transform(ds *domain.Dataset) ([][]float64, error) {
	fold := cases.Fold()
	width := p.Width()
	out := make([][]float64, ds.Len())
	for i := range out {
		out[i] = make([]float64, width)
	}

	offset := 0
	for _, c := range p.Numeric {
		idx, err := columnIndex(ds, c.Name)
		if err != nil {
			return nil, err
		}
		for i, row := range ds.Rows {
			v, err := parseOr(row[idx], c.Median)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			out[i][offset] = (v - c.Mean) / c.Std
		}
		offset++
	}

	for _, c := range p.Categorical {
		idx, err := columnIndex(ds, c.Name)
		if err != nil {
			return nil, err
		}
		for i, row := range ds.Rows {
			level := c.Mode
			if !domain.IsMissing(row[idx]) {
				level = normalizeCategory(fold, row[idx])
			}
			if pos, found := slices.BinarySearch(c.Levels, level); found {
				out[i][offset+pos] = 1
			}
		}
		offset += len(c.Levels)
	}

	for _, c := range p.Target {
		idx, err := columnIndex(ds, c.Name)
		if err != nil {
			return nil, err
		}
		for i, row := range ds.Rows {
			level := c.Mode
			if !domain.IsMissing(row[idx]) {
				level = normalizeCategory(fold, row[idx])
			}
			v, ok := c.Encoding[level]
			if !ok {
				v = c.Prior
			}
			out[i][offset] = v
		}
		offset++
	}

	for _, c := range p.Passthrough {
		idx, err := columnIndex(ds, c.Name)
		if err != nil {
			return nil, err
		}
		for i, row := range ds.Rows {
			v, err := parseOr(row[idx], c.Median)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			out[i][offset] = v
		}
		offset++
	}
	return out, nil
}

func columnIndex(ds *domain.Dataset, name string) (int, error) {
	idx := ds.ColumnIndex(name)
	if idx < 0 {
		return 0, fmt.Errorf("column %q: %w", name, domain.ErrKeyNotFound)
	}
	return idx, nil
}

func parseOr(s string, fallback float64) (float64, error) {
	if domain.IsMissing(s) {
		return fallback, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
