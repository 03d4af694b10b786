// Package registry versions fitted models. Artifacts live in a blob
// store; the version index lives either next to them in the same store
// or in PostgreSQL.
package registry

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// ModelPrefix is prepended to candidate names to form registered model
// names.
const ModelPrefix = "credit_model_"

const uriScheme = "models:/"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Entry is one registered model version.
type Entry struct {
	// Name is the registered model name, credit_model_<candidate>.
	Name string `json:"name" db:"name"`

	// Version starts at 1 and increases by one per registration of Name.
	Version int `json:"version" db:"version"`

	RunID     string           `json:"run_id" db:"run_id"`
	Candidate string           `json:"candidate" db:"candidate"`
	Kind      domain.ModelKind `json:"kind" db:"kind"`
	Metrics   MetricsColumn    `json:"metrics" db:"metrics"`

	// ArtifactKey is the blob key holding the encoded model.
	ArtifactKey  string    `json:"artifact_key" db:"artifact_key"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// URI returns the entry's model URI.
func (e Entry) URI() string { return FormatURI(e.Name, e.Version) }

// ToCandidate converts the entry to the selector's view of it.
func (e Entry) ToCandidate() domain.Candidate {
	registered := e.RegisteredAt
	return domain.Candidate{
		Model:        e.Candidate,
		Metrics:      domain.Metrics(e.Metrics).Clone(),
		ModelURI:     e.URI(),
		RunID:        e.RunID,
		Kind:         e.Kind,
		Version:      e.Version,
		RegisteredAt: &registered,
	}
}

// Index stores the version bookkeeping of the registry.
type Index interface {
	// Record assigns the next version of entry.Name, stores the entry and
	// returns it with Version set.
	Record(ctx context.Context, entry Entry) (Entry, error)

	// ListRun returns the entries registered by runID in registration
	// order. An unknown run yields an empty list.
	ListRun(ctx context.Context, runID string) ([]Entry, error)

	// Lookup returns one version. Missing versions fail with
	// ports.ErrModelNotFound.
	Lookup(ctx context.Context, name string, version int) (Entry, error)
}

// FormatURI builds models:/<name>/<version>.
func FormatURI(name string, version int) string {
	return fmt.Sprintf("%s%s/%d", uriScheme, name, version)
}

// ParseURI splits a models:/<name>/<version> URI.
func ParseURI(uri string) (name string, version int, err error) {
	rest, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q lacks %s prefix", ports.ErrInvalidModelURI, uri, uriScheme)
	}
	name, v, ok := strings.Cut(rest, "/")
	if !ok || !namePattern.MatchString(name) {
		return "", 0, fmt.Errorf("%w: %q", ports.ErrInvalidModelURI, uri)
	}
	version, err = strconv.Atoi(v)
	if err != nil || version < 1 {
		return "", 0, fmt.Errorf("%w: %q has invalid version", ports.ErrInvalidModelURI, uri)
	}
	return name, version, nil
}

// Registry implements ports.ModelRegistry.
type Registry struct {
	store ports.BlobStore
	index Index
	codec ports.ModelCodec
	now   func() time.Time

	loads  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]ports.Classifier
}

var _ ports.ModelRegistry = (*Registry)(nil)

// New creates a registry storing artifacts in store.
func New(store ports.BlobStore, index Index, codec ports.ModelCodec) *Registry {
	return &Registry{
		store:  store,
		index:  index,
		codec:  codec,
		now:    time.Now,
		loaded: make(map[string]ports.Classifier),
	}
}

// Register implements ports.ModelRegistry. The artifact is written under
// a fresh key before the version is recorded, so a failed registration
// never leaves an index entry without its artifact.
func (r *Registry) Register(ctx context.Context, reg ports.Registration) (domain.Candidate, error) {
	switch {
	case reg.RunID == "":
		return domain.Candidate{}, ports.NewRegistryError("", "register", fmt.Errorf("run id is required: %w", domain.ErrEmptyValue))
	case !namePattern.MatchString(reg.Name):
		return domain.Candidate{}, ports.NewRegistryError(reg.RunID, "register", fmt.Errorf("invalid candidate name %q", reg.Name))
	case reg.Model == nil:
		return domain.Candidate{}, ports.NewRegistryError(reg.RunID, "register", fmt.Errorf("candidate %q has no model: %w", reg.Name, domain.ErrEmptyValue))
	}

	name := ModelPrefix + reg.Name
	data, err := r.codec.Encode(reg.Model)
	if err != nil {
		return domain.Candidate{}, ports.NewRegistryError(name, "encode", err)
	}

	key := fmt.Sprintf("models/%s/artifacts/%s.zst", name, uuid.NewString())
	if err := r.store.Put(ctx, key, data); err != nil {
		return domain.Candidate{}, ports.NewRegistryError(name, "store", err)
	}

	entry, err := r.index.Record(ctx, Entry{
		Name:         name,
		RunID:        reg.RunID,
		Candidate:    reg.Name,
		Kind:         reg.Kind,
		Metrics:      MetricsColumn(reg.Metrics.Clone()),
		ArtifactKey:  key,
		RegisteredAt: r.now().UTC(),
	})
	if err != nil {
		return domain.Candidate{}, ports.NewRegistryError(name, "record", err)
	}

	r.mu.Lock()
	r.loaded[entry.URI()] = reg.Model
	r.mu.Unlock()

	return entry.ToCandidate(), nil
}

// ListCandidates implements ports.ModelRegistry.
func (r *Registry) ListCandidates(ctx context.Context, runID string) ([]domain.Candidate, error) {
	if runID == "" {
		return nil, ports.NewRegistryError("", "list", fmt.Errorf("run id is required: %w", domain.ErrEmptyValue))
	}
	entries, err := r.index.ListRun(ctx, runID)
	if err != nil {
		return nil, ports.NewRegistryError(runID, "list", err)
	}
	out := make([]domain.Candidate, len(entries))
	for i, e := range entries {
		out[i] = e.ToCandidate()
	}
	return out, nil
}

// Load implements ports.ModelRegistry. Concurrent loads of one URI share
// a single download, and decoded models are kept for the registry's
// lifetime since versions are immutable.
func (r *Registry) Load(ctx context.Context, uri string) (ports.Classifier, error) {
	name, version, err := ParseURI(uri)
	if err != nil {
		return nil, ports.NewRegistryError(uri, "load", err)
	}

	r.mu.RLock()
	model, ok := r.loaded[uri]
	r.mu.RUnlock()
	if ok {
		return model, nil
	}

	v, err, _ := r.loads.Do(uri, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.loaded[uri]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}
		entry, err := r.index.Lookup(ctx, name, version)
		if err != nil {
			return nil, err
		}
		data, err := r.store.Get(ctx, entry.ArtifactKey)
		if err != nil {
			return nil, err
		}
		model, err := r.codec.Decode(data)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.loaded[uri] = model
		r.mu.Unlock()
		return model, nil
	})
	if err != nil {
		return nil, ports.NewRegistryError(uri, "load", err)
	}
	return v.(ports.Classifier), nil
}
