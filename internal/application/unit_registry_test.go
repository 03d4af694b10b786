package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/ml"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/registry"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/storage"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/units"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// testMockUnit implements ports.Unit for testing custom factory registration.
type testMockUnit struct {
	name string
}

func (m *testMockUnit) Name() string { return m.name }

func (m *testMockUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	return state, nil
}

func (m *testMockUnit) Validate() error { return nil }

// newTestDeps wires the real stage dependencies over an in-memory store.
func newTestDeps(t *testing.T) (Dependencies, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	codec, err := ml.NewCodec()
	require.NoError(t, err)
	return Dependencies{
		Store:    store,
		Registry: registry.New(store, registry.NewBlobIndex(store), codec),
		Trainer:  ml.NewTrainer(),
	}, store
}

func TestNewDefaultUnitRegistry(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := NewDefaultUnitRegistry(deps)

	assert.Equal(t, []string{"ingest", "preprocess", "score", "select", "train"}, reg.GetSupportedTypes())
}

func TestCreateUnit_Success(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := NewDefaultUnitRegistry(deps)

	tests := []struct {
		name     string
		unitType string
		config   map[string]any
		check    func(t *testing.T, u ports.Unit)
	}{
		{
			name:     "ingest",
			unitType: "ingest",
			config:   map[string]any{"source": "raw/german_credit.csv"},
			check: func(t *testing.T, u ports.Unit) {
				assert.IsType(t, &units.IngestUnit{}, u)
			},
		},
		{
			name:     "preprocess with defaults",
			unitType: "preprocess",
			config:   nil,
			check: func(t *testing.T, u ports.Unit) {
				assert.IsType(t, &units.PreprocessUnit{}, u)
			},
		},
		{
			name:     "train with default candidates",
			unitType: "train",
			config:   map[string]any{"cv_folds": 3},
			check: func(t *testing.T, u ports.Unit) {
				train, ok := u.(*units.TrainUnit)
				require.True(t, ok)
				assert.Len(t, train.Specs(), 3)
			},
		},
		{
			name:     "select from state",
			unitType: "select",
			config: map[string]any{
				"source": "state",
				"policy": map[string]any{"primary": "auc_roc", "min_threshold": 0.6},
			},
			check: func(t *testing.T, u ports.Unit) {
				assert.IsType(t, &units.SelectUnit{}, u)
			},
		},
		{
			name:     "score",
			unitType: "score",
			config:   map[string]any{"decision_threshold": 0.4},
			check: func(t *testing.T, u ports.Unit) {
				assert.IsType(t, &units.ScoreUnit{}, u)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := reg.CreateUnit(tt.unitType, tt.name, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.name, unit.Name())
			require.NoError(t, unit.Validate())
			tt.check(t, unit)
		})
	}
}

func TestCreateUnit_Errors(t *testing.T) {
	deps, _ := newTestDeps(t)

	tests := []struct {
		name     string
		deps     Dependencies
		unitType string
		id       string
		config   map[string]any
		errMsg   string
	}{
		{
			name:     "unsupported type",
			deps:     deps,
			unitType: "evaluate",
			id:       "x",
			errMsg:   "unsupported unit type: evaluate",
		},
		{
			name:     "empty id",
			deps:     deps,
			unitType: "preprocess",
			errMsg:   "unit ID cannot be empty",
		},
		{
			name:     "unknown parameter",
			deps:     deps,
			unitType: "preprocess",
			id:       "prep",
			config:   map[string]any{"test_sise": 0.3},
			errMsg:   "failed to create unit prep of type preprocess",
		},
		{
			name:     "ingest without a store",
			deps:     Dependencies{Registry: deps.Registry, Trainer: deps.Trainer},
			unitType: "ingest",
			id:       "ingest",
			config:   map[string]any{"source": "raw.csv"},
			errMsg:   units.ErrMissingDependency.Error(),
		},
		{
			name:     "select from registry without a registry",
			deps:     Dependencies{Store: deps.Store},
			unitType: "select",
			id:       "select",
			config:   map[string]any{"policy": map[string]any{"primary": "auc_roc"}},
			errMsg:   units.ErrMissingDependency.Error(),
		},
		{
			name:     "select without primary metric",
			deps:     deps,
			unitType: "select",
			id:       "select",
			config:   map[string]any{"policy": map[string]any{"primary": ""}},
			errMsg:   domain.ErrMissingPolicyField.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewDefaultUnitRegistry(tt.deps)
			unit, err := reg.CreateUnit(tt.unitType, tt.id, tt.config)
			require.Error(t, err)
			assert.Nil(t, unit)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRegisterUnitFactory(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := NewDefaultUnitRegistry(deps)

	assert.Error(t, reg.RegisterUnitFactory("", func(string, map[string]any) (ports.Unit, error) { return nil, nil }))
	assert.Error(t, reg.RegisterUnitFactory("custom", nil))

	// Given a custom factory
	var received map[string]any
	require.NoError(t, reg.RegisterUnitFactory("custom", func(id string, config map[string]any) (ports.Unit, error) {
		received = config
		return &testMockUnit{name: id}, nil
	}))

	// When a unit of that type is created without configuration
	unit, err := reg.CreateUnit("custom", "c1", nil)

	// Then the factory receives an empty map
	require.NoError(t, err)
	assert.Equal(t, "c1", unit.Name())
	assert.NotNil(t, received)
	assert.Contains(t, reg.GetSupportedTypes(), "custom")

	// And built-in types can be overridden
	require.NoError(t, reg.RegisterUnitFactory("train", func(id string, _ map[string]any) (ports.Unit, error) {
		return &testMockUnit{name: "override-" + id}, nil
	}))
	unit, err = reg.CreateUnit("train", "t", nil)
	require.NoError(t, err)
	assert.Equal(t, "override-t", unit.Name())
}

func TestUnitRegistry_Concurrency(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := NewDefaultUnitRegistry(deps)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)

	for i := range workers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("prep%d", i)
			unit, err := reg.CreateUnit("preprocess", id, map[string]any{"test_size": 0.25})
			if err != nil {
				errs <- err
				return
			}
			if unit.Name() != id {
				errs <- fmt.Errorf("unexpected unit name %s", unit.Name())
			}
		}()
		go func() {
			defer wg.Done()
			err := reg.RegisterUnitFactory(fmt.Sprintf("custom%d", i), func(id string, _ map[string]any) (ports.Unit, error) {
				return &testMockUnit{name: id}, nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent error: %v", err)
	}
	assert.Len(t, reg.GetSupportedTypes(), 5+workers)
}
