package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// BackendLocal names the local filesystem backend.
const BackendLocal = "local"

// LocalStore keeps objects as files under a root directory.
type LocalStore struct {
	root string
}

var _ ports.BlobStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, ports.NewConfigError("LOCAL_STORAGE_ROOT", ports.ErrConfigNotFound)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Backend implements ports.BlobStore.
func (s *LocalStore) Backend() string { return BackendLocal }

// Root returns the directory objects are stored under.
func (s *LocalStore) Root() string { return s.root }

// CleanKey normalises a key to slash-separated form without leading
// slashes and rejects keys that would escape the store.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty key %q", key)
	}
	return cleaned, nil
}

func (s *LocalStore) path(op, key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", ports.NewStorageError(BackendLocal, op, key, err)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Get implements ports.BlobStore.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(OpGet, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.NewStorageError(BackendLocal, OpGet, key, ports.ErrBlobNotFound)
	}
	if err != nil {
		return nil, ports.NewStorageError(BackendLocal, OpGet, key, err)
	}
	return data, nil
}

// Put implements ports.BlobStore. Objects are written to a temporary file
// and renamed into place, so readers never see partial content.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(OpPut, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return ports.NewStorageError(BackendLocal, OpPut, key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return ports.NewStorageError(BackendLocal, OpPut, key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ports.NewStorageError(BackendLocal, OpPut, key, err)
	}
	if err := tmp.Close(); err != nil {
		return ports.NewStorageError(BackendLocal, OpPut, key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return ports.NewStorageError(BackendLocal, OpPut, key, err)
	}
	return nil
}

// Exists implements ports.BlobStore.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(OpExists, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, ports.NewStorageError(BackendLocal, OpExists, key, err)
	}
	return !info.IsDir(), nil
}

// List implements ports.BlobStore.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, ports.NewStorageError(BackendLocal, OpList, prefix, err)
	}
	slices.Sort(keys)
	return keys, nil
}
