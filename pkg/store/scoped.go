package store

import (
	"context"
	"strings"
	"time"
)

// PrefixedStore namespaces every key of an inner store. Servers use it to
// keep documents of different tenants, or documents and render artifacts,
// apart in one backend.
//
//	docs := store.Prefixed(s, "wf:")
//	renders := store.Prefixed(s, "svg:")
type PrefixedStore struct {
	inner  Store
	prefix string
}

// Prefixed wraps s so that every key is prepended with prefix. Keys
// returned by List have the prefix stripped again. A nil s uses a
// [NullStore].
func Prefixed(s Store, prefix string) Store {
	if s == nil {
		s = NewNullStore()
	}
	return &PrefixedStore{inner: s, prefix: prefix}
}

func (p *PrefixedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixedStore) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return p.inner.Put(ctx, p.prefix+key, data, ttl)
}

func (p *PrefixedStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *PrefixedStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.inner.List(ctx, p.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p.prefix)
	}
	return keys, nil
}

// Close closes the inner store.
func (p *PrefixedStore) Close() error { return p.inner.Close() }

var _ Store = (*PrefixedStore)(nil)
