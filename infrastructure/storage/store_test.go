package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// backends returns a fresh instance of every store that runs without
// external services.
func backends(t *testing.T) map[string]ports.BlobStore {
	t.Helper()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return map[string]ports.BlobStore{
		BackendMemory: NewMemoryStore(),
		BackendLocal:  local,
	}
}

func TestBlobStore_RoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Given an object written under a nested key
			require.NoError(t, store.Put(ctx, "runs/r1/candidates.json", []byte(`[]`)))

			// When reading it back
			data, err := store.Get(ctx, "runs/r1/candidates.json")

			// Then the content matches and the key exists
			require.NoError(t, err)
			assert.Equal(t, []byte(`[]`), data)

			ok, err := store.Exists(ctx, "runs/r1/candidates.json")
			require.NoError(t, err)
			assert.True(t, ok, "written key should exist")
			assert.Equal(t, name, store.Backend())
		})
	}
}

func TestBlobStore_Overwrite(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "pointer.json", []byte("v1")))
			require.NoError(t, store.Put(ctx, "pointer.json", []byte("v2")))

			data, err := store.Get(ctx, "pointer.json")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(data))
		})
	}
}

func TestBlobStore_MissingKey(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "nope/missing.bin")
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrBlobNotFound)
			assert.False(t, ports.IsRetryable(err), "missing keys are not transient")

			ok, err := store.Exists(ctx, "nope/missing.bin")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBlobStore_ListByPrefix(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{
				"models/credit_model_lr/2/model.bin",
				"models/credit_model_lr/1/model.bin",
				"models/credit_model_rf/1/model.bin",
				"runs/r1/candidates.json",
			} {
				require.NoError(t, store.Put(ctx, key, []byte("x")))
			}

			keys, err := store.List(ctx, "models/credit_model_lr/")
			require.NoError(t, err)
			assert.Equal(t, []string{
				"models/credit_model_lr/1/model.bin",
				"models/credit_model_lr/2/model.bin",
			}, keys, "keys should be sorted and filtered")

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 4)

			none, err := store.List(ctx, "absent/")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestBlobStore_KeyNormalisation(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "/a/./b/../c.txt", []byte("c")))

			data, err := store.Get(ctx, "a/c.txt")
			require.NoError(t, err)
			assert.Equal(t, "c", string(data))

			err = store.Put(ctx, "/", []byte("root"))
			assert.Error(t, err, "empty key should be rejected")
		})
	}
}

func TestBlobStore_CanceledContext(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := store.Put(ctx, "k", []byte("v"))
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestBlobStore_ConcurrentWriters(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, store.Put(ctx, fmt.Sprintf("c/%02d", i), []byte{byte(i)}))
				}()
			}
			wg.Wait()

			keys, err := store.List(ctx, "c/")
			require.NoError(t, err)
			assert.Len(t, keys, 16)
		})
	}
}

func TestMemoryStore_IsolatesCallerBuffers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", buf))
	buf[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got), "stored bytes must not alias the caller's slice")

	got[1] = 'z'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestLocalStore_SkipsTempFilesAndEscapes(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".tmp-123"), []byte("partial"), 0o600))
	require.NoError(t, store.Put(ctx, "../../escape.txt", []byte("inside")))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"escape.txt"}, keys, "dot-dot keys stay under the root")

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func TestNewLocalStore_RequiresRoot(t *testing.T) {
	_, err := NewLocalStore("")
	require.Error(t, err)

	var cfgErr *ports.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b", want: "a/b"},
		{in: "/a//b/", want: "a/b"},
		{in: `a\b\c`, want: "a/b/c"},
		{in: "../x", want: "x"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
		{in: ".", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
