package application

import (
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// unitParamKeys lists the parameter names each unit type accepts.
var unitParamKeys = map[string][]string{
	UnitTypeIngest:     {"source", "format", "sheet", "target"},
	UnitTypePreprocess: {"dropna_cols", "drop_duplicates", "rename_map", "dtype_map", "test_size", "random_state", "stratify_col"},
	UnitTypeTrain:      {"candidates", "features", "cv_folds", "parallelism", "seed", "decision_threshold"},
	UnitTypeSelect:     {"policy", "source"},
	UnitTypeScore:      {"decision_threshold", "metrics_key", "pointer_key"},
}

// workflowMetrics are the metric names the train stage records, and so
// the only names a selection policy in a workflow can rank on.
var workflowMetrics = []string{
	domain.MetricAUCROC, domain.MetricAccuracy, domain.MetricPrecision,
	domain.MetricRecall, domain.MetricF1, domain.MetricCVAUCMean, domain.MetricCVAUCStd,
	"precision_macro", "recall_macro", "f1_macro",
	"precision_weighted", "recall_weighted", "f1_weighted",
}

var dtypes = []string{"int", "float", "string", "category", "bool"}

// ValidateUnitParameters checks the parameters of a unit before any unit
// is built, so that a workflow file fails as a whole with a precise
// message. Typed decoding and range checks are repeated by the unit
// factories; this pass adds suggestions for misspelled names.
// ValidateUnitParameters returns an error if the type is unknown, if
// parameter decoding fails, or if any validation rule is violated.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	keys, ok := unitParamKeys[unitType]
	if !ok {
		return fmt.Errorf("unknown unit type %q%s", unitType, didYouMean(unitType, UnitTypes))
	}

	var paramMap map[string]any
	if err := params.Decode(&paramMap); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	for key := range paramMap {
		if !slices.Contains(keys, key) {
			return fmt.Errorf("%s: unknown parameter %q%s", unitType, key, didYouMean(key, keys))
		}
	}

	switch unitType {
	case UnitTypeIngest:
		return validateIngestParams(paramMap)
	case UnitTypePreprocess:
		return validatePreprocessParams(paramMap)
	case UnitTypeTrain:
		return validateTrainParams(paramMap)
	case UnitTypeSelect:
		return validateSelectParams(paramMap)
	default:
		return validateScoreParams(paramMap)
	}
}

// validateIngestParams requires a non-empty source key.
func validateIngestParams(params map[string]any) error {
	source, ok := params["source"]
	if !ok {
		return fmt.Errorf("ingest requires 'source' parameter")
	}
	s, ok := source.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fmt.Errorf("source must be a non-empty string")
	}
	if format, ok := params["format"]; ok {
		f, _ := format.(string)
		if f != "csv" && f != "xlsx" {
			return fmt.Errorf("format must be csv or xlsx, got %v", format)
		}
	}
	return nil
}

// validatePreprocessParams checks the split fraction and the dtype names.
func validatePreprocessParams(params map[string]any) error {
	if v, ok := params["test_size"]; ok {
		size, ok := number(v)
		if !ok {
			return fmt.Errorf("test_size must be a number")
		}
		if size <= 0 || size >= 1 {
			return fmt.Errorf("test_size must be between 0 and 1 exclusive")
		}
	}
	if v, ok := params["dtype_map"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("dtype_map must be a mapping of column to dtype")
		}
		for col, dt := range m {
			name, _ := dt.(string)
			if !slices.Contains(dtypes, name) {
				return fmt.Errorf("dtype_map: column %q has unknown dtype %v%s", col, dt, didYouMean(name, dtypes))
			}
		}
	}
	return nil
}

// validateTrainParams checks candidate kinds and names and the fold count.
func validateTrainParams(params map[string]any) error {
	if v, ok := params["cv_folds"]; ok {
		folds, ok := number(v)
		if !ok {
			return fmt.Errorf("cv_folds must be a number")
		}
		if folds != 0 && (folds < 2 || folds > 20) {
			return fmt.Errorf("cv_folds must be 0 or between 2 and 20")
		}
	}
	if v, ok := params["decision_threshold"]; ok {
		if err := validateProbability("decision_threshold", v); err != nil {
			return err
		}
	}

	raw, ok := params["candidates"]
	if !ok {
		return nil
	}
	candidates, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("candidates must be a list")
	}
	seen := make(map[string]bool, len(candidates))
	for i, c := range candidates {
		entry, ok := c.(map[string]any)
		if !ok {
			return fmt.Errorf("candidates[%d] must be a mapping", i)
		}
		name, _ := entry["name"].(string)
		if name == "" {
			return fmt.Errorf("candidates[%d] requires a 'name'", i)
		}
		if seen[name] {
			return fmt.Errorf("duplicate candidate name %q", name)
		}
		seen[name] = true

		kind, _ := entry["kind"].(string)
		if _, err := domain.ParseModelKind(kind); err != nil {
			return fmt.Errorf("candidates[%d]: %w%s", i, err, didYouMean(strings.ToLower(kind), domain.KindNames()))
		}
	}
	return nil
}

// validateSelectParams checks the policy metric names.
func validateSelectParams(params map[string]any) error {
	if v, ok := params["source"]; ok {
		s, _ := v.(string)
		if s != "registry" && s != "state" {
			return fmt.Errorf("source must be registry or state, got %v", v)
		}
	}

	raw, ok := params["policy"]
	if !ok {
		return nil
	}
	policy, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("policy must be a mapping")
	}
	if v, ok := policy["primary"]; ok {
		if err := validateMetricName("policy.primary", v); err != nil {
			return err
		}
	}
	if v, ok := policy["min_threshold"]; ok && v != nil {
		if _, ok := number(v); !ok {
			return fmt.Errorf("policy.min_threshold must be a number")
		}
	}
	if v, ok := policy["tiebreaker"]; ok {
		rules, ok := v.([]any)
		if !ok {
			return fmt.Errorf("policy.tiebreaker must be a list")
		}
		for i, r := range rules {
			rule, ok := r.(map[string]any)
			if !ok {
				return fmt.Errorf("policy.tiebreaker[%d] must be a mapping", i)
			}
			if err := validateMetricName(fmt.Sprintf("policy.tiebreaker[%d].metric", i), rule["metric"]); err != nil {
				return err
			}
			if eq, ok := rule["equality_threshold"]; ok {
				if f, ok := number(eq); !ok || f < 0 {
					return fmt.Errorf("policy.tiebreaker[%d].equality_threshold must be a non-negative number", i)
				}
			}
		}
	}
	return nil
}

// validateScoreParams checks the decision threshold.
func validateScoreParams(params map[string]any) error {
	if v, ok := params["decision_threshold"]; ok {
		return validateProbability("decision_threshold", v)
	}
	return nil
}

func validateMetricName(field string, v any) error {
	name, ok := v.(string)
	if !ok || name == "" {
		return fmt.Errorf("%s must be a non-empty string", field)
	}
	if !slices.Contains(workflowMetrics, name) {
		return fmt.Errorf("%s: unknown metric %q%s", field, name, didYouMean(name, workflowMetrics))
	}
	return nil
}

func validateProbability(field string, v any) error {
	f, ok := number(v)
	if !ok {
		return fmt.Errorf("%s must be a number", field)
	}
	if f <= 0 || f >= 1 {
		return fmt.Errorf("%s must be between 0 and 1 exclusive", field)
	}
	return nil
}

// number converts the numeric types yaml.v3 produces.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// didYouMean returns a " (did you mean ...?)" hint naming the closest
// option, or "" when nothing is close enough to be a likely typo.
func didYouMean(got string, options []string) string {
	best, bestDist := "", -1
	for _, opt := range options {
		d := levenshtein.ComputeDistance(got, opt)
		if bestDist < 0 || d < bestDist || (d == bestDist && opt < best) {
			best, bestDist = opt, d
		}
	}
	limit := max(2, len(got)/3)
	if best == "" || bestDist > limit {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
