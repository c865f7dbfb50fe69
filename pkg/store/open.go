package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// Config selects and configures a backend for [Open].
type Config struct {
	Backend string `toml:"backend"`

	// Dir is the directory of the file and badger backends.
	Dir string `toml:"dir"`

	// URL is the redis or mongo connection string.
	URL string `toml:"url"`

	// Database and Collection name the mongo collection.
	Database   string `toml:"database"`
	Collection string `toml:"collection"`

	// InMemory runs badger without touching disk.
	InMemory bool `toml:"in_memory"`

	// Prefix namespaces every key.
	Prefix string `toml:"prefix"`
}

// Open builds the backend named by cfg.Backend, wrapped with [Instrument]
// and, when cfg.Prefix is set, [Prefixed]. An empty backend means file.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("store: %s backend needs a directory", backend)
		}
		s, err = NewFileStore(cfg.Dir)
	case BackendMemory:
		s = NewMemoryStore()
	case BackendBadger:
		s, err = OpenBadger(BadgerConfig{Path: cfg.Dir, InMemory: cfg.InMemory, Logger: logger})
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.URL)
	case BackendMongo:
		db, coll := cfg.Database, cfg.Collection
		if db == "" {
			db = "nodegraph"
		}
		if coll == "" {
			coll = "workflows"
		}
		s, err = NewMongoStore(ctx, cfg.URL, db, coll)
	case BackendNull:
		s = NewNullStore()
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", backend, err)
	}
	if logger != nil {
		logger.Debug("store opened", "backend", backend)
	}
	s = Instrument(s, backend)
	if cfg.Prefix != "" {
		s = Prefixed(s, cfg.Prefix)
	}
	return s, nil
}
