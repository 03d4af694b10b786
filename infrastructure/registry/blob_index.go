package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// BlobIndex keeps the registry index as JSON objects in the blob store:
//
//	models/<name>/<version>/meta.json   one Entry per version
//	runs/<run_id>/candidates.json       the entries of one run, in order
//
// Versions are assigned under a process-local lock. Two processes
// registering the same model name against one store concurrently need
// the Postgres index instead.
type BlobIndex struct {
	store ports.BlobStore

	mu    sync.Mutex
	names map[string]*sync.Mutex
	runs  map[string]*sync.Mutex
}

var _ Index = (*BlobIndex)(nil)

// NewBlobIndex creates an index stored in store.
func NewBlobIndex(store ports.BlobStore) *BlobIndex {
	return &BlobIndex{
		store: store,
		names: make(map[string]*sync.Mutex),
		runs:  make(map[string]*sync.Mutex),
	}
}

func (b *BlobIndex) lock(set map[string]*sync.Mutex, key string) func() {
	b.mu.Lock()
	m, ok := set[key]
	if !ok {
		m = &sync.Mutex{}
		set[key] = m
	}
	b.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func metaKey(name string, version int) string {
	return fmt.Sprintf("models/%s/%d/meta.json", name, version)
}

func runKey(runID string) string {
	return "runs/" + runID + "/candidates.json"
}

// latestVersion scans the meta objects of name for the highest version.
func (b *BlobIndex) latestVersion(ctx context.Context, name string) (int, error) {
	prefix := "models/" + name + "/"
	keys, err := b.store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	latest := 0
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		v, file, ok := strings.Cut(rest, "/")
		if !ok || file != "meta.json" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > latest {
			latest = n
		}
	}
	return latest, nil
}

// Record implements Index.
func (b *BlobIndex) Record(ctx context.Context, entry Entry) (Entry, error) {
	unlockName := b.lock(b.names, entry.Name)
	latest, err := b.latestVersion(ctx, entry.Name)
	if err != nil {
		unlockName()
		return Entry{}, err
	}
	entry.Version = latest + 1

	meta, err := json.Marshal(entry)
	if err != nil {
		unlockName()
		return Entry{}, fmt.Errorf("failed to marshal entry: %w", err)
	}
	err = b.store.Put(ctx, metaKey(entry.Name, entry.Version), meta)
	unlockName()
	if err != nil {
		return Entry{}, err
	}

	unlockRun := b.lock(b.runs, entry.RunID)
	defer unlockRun()

	entries, err := b.ListRun(ctx, entry.RunID)
	if err != nil {
		return Entry{}, err
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal run index: %w", err)
	}
	if err := b.store.Put(ctx, runKey(entry.RunID), data); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// ListRun implements Index.
func (b *BlobIndex) ListRun(ctx context.Context, runID string) ([]Entry, error) {
	data, err := b.store.Get(ctx, runKey(runID))
	if errors.Is(err, ports.ErrBlobNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: run index %s: %v", ports.ErrCorruptArtifact, runID, err)
	}
	return entries, nil
}

// Lookup implements Index.
func (b *BlobIndex) Lookup(ctx context.Context, name string, version int) (Entry, error) {
	data, err := b.store.Get(ctx, metaKey(name, version))
	if errors.Is(err, ports.ErrBlobNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ports.ErrModelNotFound, FormatURI(name, version))
	}
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %s: %v", ports.ErrCorruptArtifact, FormatURI(name, version), err)
	}
	return entry, nil
}
