package domain

import (
	"fmt"
	"strings"
)

// ModelKind enumerates the supported model families. The set is closed:
// a kind is resolved when configuration is loaded, never by name lookup
// at training time.
type ModelKind string

const (
	// KindLogisticRegression is an L2-regularised logistic regression.
	KindLogisticRegression ModelKind = "logistic_regression"

	// KindRandomForest is a bagged ensemble of Gini classification trees.
	KindRandomForest ModelKind = "random_forest"

	// KindGradientBoosting is log-loss gradient boosting of regression trees.
	KindGradientBoosting ModelKind = "gradient_boosting"
)

// ModelKinds lists the supported kinds in a stable order.
var ModelKinds = []ModelKind{KindLogisticRegression, KindRandomForest, KindGradientBoosting}

var kindAliases = map[string]ModelKind{
	"logistic_regression": KindLogisticRegression,
	"logisticregression":  KindLogisticRegression,
	"logreg":              KindLogisticRegression,
	"log_reg":             KindLogisticRegression,
	"random_forest":       KindRandomForest,
	"randomforest":        KindRandomForest,
	"rf":                  KindRandomForest,
	"gradient_boosting":   KindGradientBoosting,
	"gradientboosting":    KindGradientBoosting,
	"xgb":                 KindGradientBoosting,
	"xgboost":             KindGradientBoosting,
	"gbm":                 KindGradientBoosting,
}

// ParseModelKind resolves a kind name or one of its aliases.
func ParseModelKind(s string) (ModelKind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModelKind, s)
	}
	return k, nil
}

// KindNames returns every accepted spelling, for suggestion lookups.
func KindNames() []string {
	out := make([]string, 0, len(kindAliases))
	for name := range kindAliases {
		out = append(out, name)
	}
	return out
}

// LogRegParams configures logistic regression.
type LogRegParams struct {
	// C is the inverse regularisation strength.
	C float64 `json:"C" mapstructure:"C" validate:"gt=0"`

	// MaxIter bounds optimiser iterations.
	MaxIter int `json:"max_iter" mapstructure:"max_iter" validate:"min=1"`

	// Tol is the gradient-norm convergence tolerance.
	Tol float64 `json:"tol" mapstructure:"tol" validate:"gt=0"`
}

// RandomForestParams configures the random forest.
type RandomForestParams struct {
	NEstimators    int    `json:"n_estimators" mapstructure:"n_estimators" validate:"min=1,max=2000"`
	MaxDepth       int    `json:"max_depth" mapstructure:"max_depth" validate:"min=1,max=64"`
	MinSamplesLeaf int    `json:"min_samples_leaf" mapstructure:"min_samples_leaf" validate:"min=1"`
	MaxFeatures    string `json:"max_features" mapstructure:"max_features" validate:"oneof=sqrt all log2"`
	RandomState    uint64 `json:"random_state" mapstructure:"random_state"`
}

// GradientBoostingParams configures gradient boosting.
type GradientBoostingParams struct {
	NEstimators  int     `json:"n_estimators" mapstructure:"n_estimators" validate:"min=1,max=5000"`
	LearningRate float64 `json:"learning_rate" mapstructure:"learning_rate" validate:"gt=0,lte=1"`
	MaxDepth     int     `json:"max_depth" mapstructure:"max_depth" validate:"min=1,max=16"`
	Subsample    float64 `json:"subsample" mapstructure:"subsample" validate:"gt=0,lte=1"`
	RandomState  uint64  `json:"random_state" mapstructure:"random_state"`
}

// DefaultLogRegParams returns the defaults for logistic regression.
func DefaultLogRegParams() LogRegParams {
	return LogRegParams{C: 1.0, MaxIter: 1000, Tol: 1e-6}
}

// DefaultRandomForestParams returns the defaults for the random forest.
func DefaultRandomForestParams() RandomForestParams {
	return RandomForestParams{NEstimators: 100, MaxDepth: 10, MinSamplesLeaf: 1, MaxFeatures: "sqrt", RandomState: 42}
}

// DefaultGradientBoostingParams returns the defaults for gradient boosting.
func DefaultGradientBoostingParams() GradientBoostingParams {
	return GradientBoostingParams{NEstimators: 200, LearningRate: 0.05, MaxDepth: 3, Subsample: 1.0, RandomState: 42}
}

// CandidateSpec describes one candidate to train. Exactly one parameter
// struct is set, the one matching Kind.
type CandidateSpec struct {
	// Name is the candidate identifier, also used as the registry model
	// name suffix.
	Name string `json:"name"`

	// Kind selects the model family.
	Kind ModelKind `json:"kind"`

	LogReg           *LogRegParams           `json:"logistic_regression,omitempty"`
	RandomForest     *RandomForestParams     `json:"random_forest,omitempty"`
	GradientBoosting *GradientBoostingParams `json:"gradient_boosting,omitempty"`
}

// Params returns the parameter struct matching Kind.
func (s CandidateSpec) Params() (any, error) {
	switch s.Kind {
	case KindLogisticRegression:
		if s.LogReg == nil {
			return nil, fmt.Errorf("candidate %q: missing %s params", s.Name, s.Kind)
		}
		return *s.LogReg, nil
	case KindRandomForest:
		if s.RandomForest == nil {
			return nil, fmt.Errorf("candidate %q: missing %s params", s.Name, s.Kind)
		}
		return *s.RandomForest, nil
	case KindGradientBoosting:
		if s.GradientBoosting == nil {
			return nil, fmt.Errorf("candidate %q: missing %s params", s.Name, s.Kind)
		}
		return *s.GradientBoosting, nil
	default:
		return nil, fmt.Errorf("candidate %q: %w: %q", s.Name, ErrUnknownModelKind, s.Kind)
	}
}

// NewCandidateSpec returns a spec of the given kind with default
// parameters.
func NewCandidateSpec(name string, kind ModelKind) (CandidateSpec, error) {
	spec := CandidateSpec{Name: name, Kind: kind}
	switch kind {
	case KindLogisticRegression:
		p := DefaultLogRegParams()
		spec.LogReg = &p
	case KindRandomForest:
		p := DefaultRandomForestParams()
		spec.RandomForest = &p
	case KindGradientBoosting:
		p := DefaultGradientBoostingParams()
		spec.GradientBoosting = &p
	default:
		return CandidateSpec{}, fmt.Errorf("%w: %q", ErrUnknownModelKind, kind)
	}
	return spec, nil
}

// FeatureGroups assigns dataset columns to preprocessing treatments.
type FeatureGroups struct {
	// Numeric columns are median-imputed and standard-scaled.
	Numeric []string `json:"numeric" yaml:"numeric" mapstructure:"numeric"`

	// Categorical columns are mode-imputed and one-hot encoded.
	Categorical []string `json:"categorical" yaml:"categorical" mapstructure:"categorical"`

	// HighCardinality columns are mode-imputed and target encoded.
	HighCardinality []string `json:"high_cardinality,omitempty" yaml:"high_cardinality,omitempty" mapstructure:"high_cardinality"`

	// Passthrough columns are parsed as numbers and used unchanged.
	Passthrough []string `json:"passthrough,omitempty" yaml:"passthrough,omitempty" mapstructure:"passthrough"`
}

// All returns every configured column.
func (g FeatureGroups) All() []string {
	out := make([]string, 0, len(g.Numeric)+len(g.Categorical)+len(g.HighCardinality)+len(g.Passthrough))
	out = append(out, g.Numeric...)
	out = append(out, g.Categorical...)
	out = append(out, g.HighCardinality...)
	return append(out, g.Passthrough...)
}

// Empty reports whether no columns are configured.
func (g FeatureGroups) Empty() bool { return len(g.All()) == 0 }
