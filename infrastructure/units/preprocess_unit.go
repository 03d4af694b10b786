package units

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/ml"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

var _ ports.Unit = (*PreprocessUnit)(nil)

// Column types accepted in PreprocessConfig.DTypeMap.
const (
	DTypeInt      = "int"
	DTypeFloat    = "float"
	DTypeString   = "string"
	DTypeCategory = "category"
	DTypeBool     = "bool"
)

// PreprocessUnit cleans the raw dataset and splits it into train and test
// sets stored under domain.KeyTrainData and domain.KeyTestData.
type PreprocessUnit struct {
	name   string
	config PreprocessConfig
}

// PreprocessConfig defines the cleaning steps and the split. Steps run in
// field order: drop missing, drop duplicates, rename, cast, split.
type PreprocessConfig struct {
	// DropNACols drops rows with a missing value in any listed column.
	DropNACols []string `mapstructure:"dropna_cols" yaml:"dropna_cols"`

	// DropDuplicates removes exact duplicate rows, keeping the first.
	DropDuplicates bool `mapstructure:"drop_duplicates" yaml:"drop_duplicates"`

	// RenameMap renames columns, old name to new name.
	RenameMap map[string]string `mapstructure:"rename_map" yaml:"rename_map"`

	// DTypeMap casts columns, addressed by their renamed names.
	DTypeMap map[string]string `mapstructure:"dtype_map" yaml:"dtype_map" validate:"dive,oneof=int float string category bool"`

	// TestSize is the fraction of rows held out for scoring.
	TestSize float64 `mapstructure:"test_size" yaml:"test_size" validate:"gt=0,lt=1"`

	// RandomState seeds the split.
	RandomState uint64 `mapstructure:"random_state" yaml:"random_state"`

	// StratifyCol is the binary column whose class balance the split
	// preserves. Empty means the target column. A column absent from the
	// data gives a plain shuffled split.
	StratifyCol string `mapstructure:"stratify_col" yaml:"stratify_col"`
}

// DefaultPreprocessConfig returns a PreprocessConfig with sensible defaults.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		DropDuplicates: true,
		TestSize:       0.2,
		RandomState:    42,
	}
}

// NewPreprocessUnit creates a new PreprocessUnit with the specified configuration.
func NewPreprocessUnit(name string, config PreprocessConfig) (*PreprocessUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &PreprocessUnit{name: name, config: config}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *PreprocessUnit) Name() string { return u.name }

// Execute cleans and splits the raw dataset.
func (u *PreprocessUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	raw, err := requireInput(state, domain.KeyRawData)
	if err != nil {
		return state, err
	}
	if err := ctx.Err(); err != nil {
		return state, err
	}

	train, test, err := Preprocess(raw, u.config)
	if err != nil {
		return state, fmt.Errorf("preprocessing failed: %w", err)
	}
	slog.InfoContext(ctx, "dataset split",
		"unit", u.name,
		"rows", raw.Len(),
		"train_rows", train.Len(),
		"test_rows", test.Len())

	return state.WithMultiple(map[string]any{
		domain.KeyTrainData.Name(): train,
		domain.KeyTestData.Name():  test,
	}), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *PreprocessUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Preprocess applies the configured cleaning steps to ds and splits the
// result. ds is not modified.
func Preprocess(ds *domain.Dataset, config PreprocessConfig) (train, test *domain.Dataset, err error) {
	if ds == nil || ds.Len() == 0 {
		return nil, nil, fmt.Errorf("empty dataset: %w", domain.ErrEmptyValue)
	}
	cleaned, err := Clean(ds, config)
	if err != nil {
		return nil, nil, err
	}

	column := config.StratifyCol
	if column == "" {
		column = cleaned.Target
	}
	labels, err := stratifyLabels(cleaned, column)
	if err != nil {
		return nil, nil, err
	}
	trainIdx, testIdx, err := ml.StratifiedSplit(labels, config.TestSize, config.RandomState)
	if err != nil {
		return nil, nil, err
	}
	return cleaned.Subset(trainIdx), cleaned.Subset(testIdx), nil
}

// Clean applies the drop, rename and cast steps without splitting.
func Clean(ds *domain.Dataset, config PreprocessConfig) (*domain.Dataset, error) {
	out := &domain.Dataset{
		Columns: slices.Clone(ds.Columns),
		Rows:    make([][]string, 0, len(ds.Rows)),
		Target:  ds.Target,
	}

	dropIdx := make([]int, 0, len(config.DropNACols))
	for _, name := range config.DropNACols {
		idx := ds.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("dropna column %q: %w", name, domain.ErrKeyNotFound)
		}
		dropIdx = append(dropIdx, idx)
	}

	seen := make(map[string]struct{}, len(ds.Rows))
rows:
	for _, row := range ds.Rows {
		for _, idx := range dropIdx {
			if domain.IsMissing(row[idx]) {
				continue rows
			}
		}
		if config.DropDuplicates {
			key := strings.Join(row, "\x00")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out.Rows = append(out.Rows, slices.Clone(row))
	}

	for _, oldName := range slices.Sorted(maps.Keys(config.RenameMap)) {
		idx := out.ColumnIndex(oldName)
		if idx < 0 {
			return nil, fmt.Errorf("rename column %q: %w", oldName, domain.ErrKeyNotFound)
		}
		newName := config.RenameMap[oldName]
		out.Columns[idx] = newName
		if out.Target == oldName {
			out.Target = newName
		}
	}

	for _, name := range slices.Sorted(maps.Keys(config.DTypeMap)) {
		idx := out.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("cast column %q: %w", name, domain.ErrKeyNotFound)
		}
		for i, row := range out.Rows {
			v, err := castValue(row[idx], config.DTypeMap[name])
			if err != nil {
				return nil, fmt.Errorf("cast column %q row %d: %w", name, i, err)
			}
			row[idx] = v
		}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// castValue converts one cell to the canonical text form of dtype.
// Missing values stay missing.
func castValue(s, dtype string) (string, error) {
	s = strings.TrimSpace(s)
	if domain.IsMissing(s) {
		return "", nil
	}
	switch dtype {
	case DTypeInt:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", err
		}
		if f != math.Trunc(f) {
			return "", fmt.Errorf("%q is not an integer", s)
		}
		return strconv.FormatInt(int64(f), 10), nil
	case DTypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case DTypeBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return strconv.FormatBool(b), nil
		}
		b, err := domain.ParseLabel(s)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case DTypeString, DTypeCategory:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported dtype %q", dtype)
	}
}

// stratifyLabels returns the class of every row for the split. Without a
// usable stratify column every row shares one class.
func stratifyLabels(ds *domain.Dataset, column string) ([]bool, error) {
	if column == "" || ds.ColumnIndex(column) < 0 {
		return make([]bool, ds.Len()), nil
	}
	raw, err := ds.Column(column)
	if err != nil {
		return nil, err
	}
	labels := make([]bool, len(raw))
	for i, s := range raw {
		labels[i], err = domain.ParseLabel(s)
		if err != nil {
			return nil, fmt.Errorf("stratify column %q row %d: %w", column, i, err)
		}
	}
	return labels, nil
}

// CreatePreprocessUnit is a factory function that creates a
// PreprocessUnit from a configuration map.
func CreatePreprocessUnit(id string, config map[string]any) (*PreprocessUnit, error) {
	cfg := DefaultPreprocessConfig()
	if err := decodeParams(config, &cfg); err != nil {
		return nil, err
	}
	return NewPreprocessUnit(id, cfg)
}
