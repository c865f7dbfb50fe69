package store

import (
	"context"
	"time"

	"github.com/matzehuels/nodegraph/pkg/observability"
)

type instrumented struct {
	inner   Store
	backend string
}

// Instrument reports every operation on s to the registered
// [observability.StoreHooks] under the given backend label.
func Instrument(s Store, backend string) Store {
	return &instrumented{inner: s, backend: backend}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := s.inner.Get(ctx, key)
	hooks := observability.Store()
	switch {
	case err != nil:
		hooks.OnStoreError(ctx, s.backend, "get", err)
	case ok:
		hooks.OnStoreHit(ctx, s.backend)
	default:
		hooks.OnStoreMiss(ctx, s.backend)
	}
	return data, ok, err
}

func (s *instrumented) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := s.inner.Put(ctx, key, data, ttl)
	if err != nil {
		observability.Store().OnStoreError(ctx, s.backend, "put", err)
		return err
	}
	observability.Store().OnStorePut(ctx, s.backend, len(data))
	return nil
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	err := s.inner.Delete(ctx, key)
	if err != nil {
		observability.Store().OnStoreError(ctx, s.backend, "delete", err)
	}
	return err
}

func (s *instrumented) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.List(ctx, prefix)
	if err != nil {
		observability.Store().OnStoreError(ctx, s.backend, "list", err)
	}
	return keys, err
}

func (s *instrumented) Close() error { return s.inner.Close() }
