// Package storage provides the blob store backends (local filesystem,
// Azure Blob Storage, memory) and the middleware that makes remote stores
// resilient and observable.
package storage

import (
	"context"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Middleware wraps a BlobStore with additional behaviour.
type Middleware func(next ports.BlobStore) ports.BlobStore

// Chain applies middlewares to store. The first middleware is the
// outermost: Chain(s, a, b) calls a, then b, then s.
func Chain(store ports.BlobStore, middlewares ...Middleware) ports.BlobStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}

// Operation names passed to interceptors and used as metric labels.
const (
	OpGet    = "get"
	OpPut    = "put"
	OpExists = "exists"
	OpList   = "list"
)

// interceptor runs call, which performs one store operation, and may
// wrap it with waiting, retries, deadlines or instrumentation.
type interceptor func(ctx context.Context, op, key string, call func(context.Context) error) error

// intercepted routes every BlobStore method through an interceptor so
// each middleware only implements its behaviour once.
type intercepted struct {
	next   ports.BlobStore
	around interceptor
}

func intercept(around interceptor) Middleware {
	return func(next ports.BlobStore) ports.BlobStore {
		return &intercepted{next: next, around: around}
	}
}

func (s *intercepted) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.around(ctx, OpGet, key, func(ctx context.Context) error {
		var err error
		out, err = s.next.Get(ctx, key)
		return err
	})
	return out, err
}

func (s *intercepted) Put(ctx context.Context, key string, data []byte) error {
	return s.around(ctx, OpPut, key, func(ctx context.Context) error {
		return s.next.Put(ctx, key, data)
	})
}

func (s *intercepted) Exists(ctx context.Context, key string) (bool, error) {
	var out bool
	err := s.around(ctx, OpExists, key, func(ctx context.Context) error {
		var err error
		out, err = s.next.Exists(ctx, key)
		return err
	})
	return out, err
}

func (s *intercepted) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := s.around(ctx, OpList, prefix, func(ctx context.Context) error {
		var err error
		out, err = s.next.List(ctx, prefix)
		return err
	})
	return out, err
}

func (s *intercepted) Backend() string { return s.next.Backend() }
