package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// paramsNode parses a YAML mapping into the node form unit configs carry.
func paramsNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	if len(doc.Content) == 0 {
		return yaml.Node{}
	}
	return *doc.Content[0]
}

func TestValidateUnitParameters(t *testing.T) {
	tests := []struct {
		name     string
		unitType string
		params   string
		errMsg   string
	}{
		{name: "ingest csv", unitType: UnitTypeIngest, params: "source: raw/credit.csv"},
		{name: "ingest xlsx sheet", unitType: UnitTypeIngest, params: "source: raw/credit.xlsx\nformat: xlsx\nsheet: data"},
		{name: "ingest without source", unitType: UnitTypeIngest, params: "format: csv", errMsg: "requires 'source'"},
		{name: "ingest blank source", unitType: UnitTypeIngest, params: "source: '  '", errMsg: "non-empty string"},
		{name: "ingest unknown format", unitType: UnitTypeIngest, params: "source: a.json\nformat: json", errMsg: "csv or xlsx"},

		{name: "preprocess empty", unitType: UnitTypePreprocess, params: ""},
		{
			name:     "preprocess full",
			unitType: UnitTypePreprocess,
			params:   "dropna_cols: [Age]\ndrop_duplicates: true\nrename_map: {Risk: CreditRisk}\ndtype_map: {Age: int, Sex: category}\ntest_size: 0.2\nrandom_state: 42\nstratify_col: CreditRisk",
		},
		{name: "test size of one", unitType: UnitTypePreprocess, params: "test_size: 1", errMsg: "between 0 and 1"},
		{name: "test size not a number", unitType: UnitTypePreprocess, params: "test_size: large", errMsg: "must be a number"},
		{name: "misspelled dtype", unitType: UnitTypePreprocess, params: "dtype_map: {Age: flaot}", errMsg: `(did you mean "float"?)`},

		{name: "train defaults", unitType: UnitTypeTrain, params: ""},
		{name: "train aliases", unitType: UnitTypeTrain, params: "candidates:\n  - {name: a, kind: xgb}\n  - {name: b, kind: LogReg}"},
		{name: "cv folds disabled", unitType: UnitTypeTrain, params: "cv_folds: 0"},
		{name: "single fold", unitType: UnitTypeTrain, params: "cv_folds: 1", errMsg: "0 or between 2 and 20"},
		{name: "unnamed candidate", unitType: UnitTypeTrain, params: "candidates:\n  - kind: rf", errMsg: "requires a 'name'"},
		{name: "duplicate candidate", unitType: UnitTypeTrain, params: "candidates:\n  - {name: a, kind: rf}\n  - {name: a, kind: xgb}", errMsg: `duplicate candidate name "a"`},
		{
			name:     "misspelled kind",
			unitType: UnitTypeTrain,
			params:   "candidates:\n  - {name: a, kind: random_forrest}",
			errMsg:   `(did you mean "random_forest"?)`,
		},
		{name: "candidates not a list", unitType: UnitTypeTrain, params: "candidates: {name: a}", errMsg: "must be a list"},
		{name: "train threshold out of range", unitType: UnitTypeTrain, params: "decision_threshold: 1.5", errMsg: "between 0 and 1"},

		{
			name:     "select full policy",
			unitType: UnitTypeSelect,
			params:   "source: state\npolicy:\n  primary: auc_roc\n  min_threshold: 0.7\n  tiebreaker:\n    - {metric: recall, equality_threshold: 0.01}\n    - {metric: f1_weighted}",
		},
		{name: "select null threshold", unitType: UnitTypeSelect, params: "policy:\n  primary: auc_roc\n  min_threshold: null"},
		{name: "select unknown source", unitType: UnitTypeSelect, params: "source: mlflow", errMsg: "registry or state"},
		{name: "select blank primary", unitType: UnitTypeSelect, params: "policy:\n  primary: ''", errMsg: "policy.primary must be a non-empty string"},
		{name: "select threshold not numeric", unitType: UnitTypeSelect, params: "policy:\n  primary: f1\n  min_threshold: high", errMsg: "min_threshold must be a number"},
		{
			name:     "select negative equality threshold",
			unitType: UnitTypeSelect,
			params:   "policy:\n  primary: f1\n  tiebreaker:\n    - {metric: recall, equality_threshold: -0.1}",
			errMsg:   "non-negative",
		},
		{
			name:     "select misspelled tie-break metric",
			unitType: UnitTypeSelect,
			params:   "policy:\n  primary: f1\n  tiebreaker:\n    - {metric: recal}",
			errMsg:   `policy.tiebreaker[0].metric: unknown metric "recal" (did you mean "recall"?)`,
		},

		{name: "score threshold", unitType: UnitTypeScore, params: "decision_threshold: 0.35\nmetrics_key: out/metrics.json"},
		{name: "score zero threshold", unitType: UnitTypeScore, params: "decision_threshold: 0", errMsg: "between 0 and 1"},

		{name: "unknown type", unitType: "evaluate", params: "", errMsg: `unknown unit type "evaluate"`},
		{name: "unknown parameter", unitType: UnitTypeScore, params: "pointer_ky: x", errMsg: `unknown parameter "pointer_ky" (did you mean "pointer_key"?)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnitParameters(tt.unitType, paramsNode(t, tt.params))
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDidYouMean(t *testing.T) {
	tests := []struct {
		got     string
		options []string
		want    string
	}{
		{got: "trian", options: UnitTypes, want: ` (did you mean "train"?)`},
		{got: "scroe", options: UnitTypes, want: ` (did you mean "score"?)`},
		{got: "ingest", options: UnitTypes, want: ` (did you mean "ingest"?)`},
		{got: "evaluate", options: UnitTypes, want: ""},
		{got: "x", options: []string{"ab", "ax"}, want: ` (did you mean "ax"?)`},
		{got: "anything", options: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.got, func(t *testing.T) {
			assert.Equal(t, tt.want, didYouMean(tt.got, tt.options))
		})
	}
}
