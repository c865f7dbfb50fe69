// Package store persists serialized workflow documents.
//
// A [Store] is a byte-oriented key/value store with optional expiry. The
// backends cover the deployment shapes the CLI and server need:
//
//   - [FileStore]: one JSON envelope per key under a directory (CLI default)
//   - [MemoryStore]: process-local map, for tests and ephemeral servers
//   - [BadgerStore]: embedded LSM database
//   - [RedisStore]: shared cache in front of several servers
//   - [MongoStore]: durable shared document storage
//   - [NullStore]: stores nothing
//
// [Prefixed] namespaces keys and [Instrument] reports operations to the
// observability hooks. [Open] builds a backend from a [Config].
package store

import (
	"context"
	"time"
)

// Store is a key/value store for documents. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value for key. A missing or expired key reports
	// false with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores data under key. A positive ttl expires the entry.
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the live keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend's resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNull   = "null"
)
