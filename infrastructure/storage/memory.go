package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// BackendMemory names the in-memory backend.
const BackendMemory = "memory"

// MemoryStore keeps objects in a map. It is safe for concurrent use and
// intended for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ ports.BlobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Backend implements ports.BlobStore.
func (s *MemoryStore) Backend() string { return BackendMemory }

// Get implements ports.BlobStore.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := CleanKey(key)
	if err != nil {
		return nil, ports.NewStorageError(BackendMemory, OpGet, key, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[k]
	if !ok {
		return nil, ports.NewStorageError(BackendMemory, OpGet, key, ports.ErrBlobNotFound)
	}
	return slices.Clone(data), nil
}

// Put implements ports.BlobStore.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := CleanKey(key)
	if err != nil {
		return ports.NewStorageError(BackendMemory, OpPut, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[k] = slices.Clone(data)
	return nil
}

// Exists implements ports.BlobStore.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k, err := CleanKey(key)
	if err != nil {
		return false, ports.NewStorageError(BackendMemory, OpExists, key, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[k]
	return ok, nil
}

// List implements ports.BlobStore.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
