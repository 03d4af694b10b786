package units

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/ml"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/registry"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/infrastructure/storage"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

const testRunID = "run-0001"

// newTestRegistry returns a blob-indexed registry over a fresh in-memory
// store.
func newTestRegistry(t *testing.T) (*registry.Registry, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	codec, err := ml.NewCodec()
	require.NoError(t, err)
	return registry.New(store, registry.NewBlobIndex(store), codec), store
}

// runState returns a state seeded with the test run ID.
func runState() domain.State {
	return domain.With(domain.NewState(), domain.KeyRunID, testRunID)
}

// tinyDataset is a small labelled dataset with a duplicate row and
// missing values.
func tinyDataset() *domain.Dataset {
	return &domain.Dataset{
		Columns: []string{"age", "housing", "amount", "risk"},
		Rows: [][]string{
			{"25", "own", "1000", "0"},
			{"25", "own", "1000", "0"},
			{"40", "rent", "", "1"},
			{"33", "", "2500.0", "0"},
			{"51", "free", "700", "1"},
			{"29", "own", "1800", "0"},
		},
		Target: "risk",
	}
}

// recordingCollector is a ports.MetricsCollector that keeps totals in
// memory.
type recordingCollector struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

func (c *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (c *recordingCollector) RecordCounter(metric string, value float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[metric] += value
}

func (c *recordingCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[metric+"/"+labels["metric"]] = value
}

func (c *recordingCollector) RecordHistogram(string, float64, map[string]string) {}

func (c *recordingCollector) counter(metric string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[metric]
}

func (c *recordingCollector) gauge(metric, label string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.gauges[metric+"/"+label]
	return v, ok
}
