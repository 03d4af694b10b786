package units

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/dataset"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

var _ ports.Unit = (*IngestUnit)(nil)

// IngestUnit downloads the raw dataset from the blob store and places it
// in the state under domain.KeyRawData.
type IngestUnit struct {
	name   string
	config IngestConfig
	store  ports.BlobStore
}

// IngestConfig defines the parameters of an ingest stage.
type IngestConfig struct {
	// Source is the blob key of the raw dataset.
	Source string `mapstructure:"source" yaml:"source" validate:"required"`

	// Format forces the decoder. Empty selects it from the key extension.
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=csv xlsx"`

	// Sheet is the worksheet to read from spreadsheets. Empty reads the
	// first sheet.
	Sheet string `mapstructure:"sheet" yaml:"sheet"`

	// Target is the label column.
	Target string `mapstructure:"target" yaml:"target" validate:"required"`
}

// DefaultIngestConfig returns an IngestConfig with sensible defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{Target: dataset.GermanTarget}
}

// NewIngestUnit creates an IngestUnit reading from store.
func NewIngestUnit(name string, config IngestConfig, store ports.BlobStore) (*IngestUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if store == nil {
		return nil, fmt.Errorf("ingest unit %q: blob store: %w", name, ErrMissingDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &IngestUnit{name: name, config: config, store: store}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *IngestUnit) Name() string { return u.name }

// Execute loads the configured blob and decodes it.
func (u *IngestUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ds, err := Ingest(ctx, u.store, u.config)
	if err != nil {
		return state, err
	}
	slog.InfoContext(ctx, "dataset ingested",
		"unit", u.name,
		"source", u.config.Source,
		"rows", ds.Len(),
		"columns", len(ds.Columns))
	return domain.With(state, domain.KeyRawData, ds), nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *IngestUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Ingest reads and decodes the dataset named by config from store.
func Ingest(ctx context.Context, store ports.BlobStore, config IngestConfig) (*domain.Dataset, error) {
	data, err := store.Get(ctx, config.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to download dataset: %w", err)
	}

	name := config.Source
	if config.Format != "" {
		name = path.Base(config.Source) + "." + config.Format
	}
	if strings.EqualFold(path.Ext(name), ".xlsx") {
		return dataset.ReadXLSX(bytes.NewReader(data), config.Sheet, config.Target)
	}
	return dataset.Decode(name, data, config.Target)
}

// CreateIngestUnit is a factory function that creates an IngestUnit from
// a configuration map, following the UnitFactory pattern.
func CreateIngestUnit(id string, config map[string]any, store ports.BlobStore) (*IngestUnit, error) {
	cfg := DefaultIngestConfig()
	if err := decodeParams(config, &cfg); err != nil {
		return nil, err
	}
	return NewIngestUnit(id, cfg, store)
}
