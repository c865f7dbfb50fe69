// Package config loads the nodegraph configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/nodegraph/config.toml
// (~/.config/nodegraph/config.toml when XDG_CONFIG_HOME is unset):
//
//	[registry]
//	files = ["nodes.toml"]
//	strict = false
//
//	[index]
//	max_depth = 8
//	max_items = 16
//
//	[store]
//	backend = "badger"
//	dir = "~/.local/share/nodegraph/badger"
//
//	[server]
//	addr = ":8080"
//	read_timeout = "10s"
//	metrics = true
//
//	[log]
//	level = "info"
//
// Relative registry files and store directories resolve against the
// directory of the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodegraph/pkg/registry"
	"github.com/matzehuels/nodegraph/pkg/spatial"
	"github.com/matzehuels/nodegraph/pkg/store"
)

const appName = "nodegraph"

// Config is the whole configuration file.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Index    IndexConfig    `toml:"index"`
	Store    store.Config   `toml:"store"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`

	// dir is the directory of the loaded file, empty for defaults.
	dir string
}

// RegistryConfig lists node type files.
type RegistryConfig struct {
	Files  []string `toml:"files"`
	Strict bool     `toml:"strict"`
}

// IndexConfig tunes the spatial indexes.
type IndexConfig struct {
	MaxDepth int `toml:"max_depth"`
	MaxItems int `toml:"max_items"`
}

// ServerConfig configures `nodegraph serve`.
type ServerConfig struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	Metrics      bool          `toml:"metrics"`
	Otel         bool          `toml:"otel"`
}

// LogConfig sets the default log level. --verbose overrides it.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dir, err := DataDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), appName)
	}
	return &Config{
		Store: store.Config{
			Backend: store.BackendFile,
			Dir:     filepath.Join(dir, "workflows"),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			Metrics:      true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path loads the default
// location and tolerates it being absent.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.dir = filepath.Dir(path)
	cfg.Store.Dir = cfg.resolve(cfg.Store.Dir)
	for i, f := range cfg.Registry.Files {
		cfg.Registry.Files[i] = cfg.resolve(f)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that decoding cannot.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", store.BackendFile, store.BackendMemory, store.BackendBadger, store.BackendNull:
	case store.BackendRedis, store.BackendMongo:
		if c.Store.URL == "" {
			return fmt.Errorf("store backend %s requires url", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil && c.Log.Level != "" {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Index.MaxDepth < 0 || c.Index.MaxItems < 0 {
		return fmt.Errorf("index limits must not be negative")
	}
	return nil
}

// resolve expands ~ and makes p relative to the config file.
func (c *Config) resolve(p string) string {
	if p == "" {
		return p
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// IndexOptions converts the index section.
func (c *Config) IndexOptions() spatial.Options {
	return spatial.Options{MaxDepth: c.Index.MaxDepth, MaxItems: c.Index.MaxItems}
}

// LogLevel returns the configured level, info when unset or invalid.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// OpenRegistry builds a registry from the configured files, in order.
func (c *Config) OpenRegistry() (*registry.Registry, error) {
	r := registry.New(registry.WithStrict(c.Registry.Strict))
	for _, f := range c.Registry.Files {
		if err := r.LoadFile(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// =============================================================================
// Paths
// =============================================================================

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DataDir returns the directory for stored workflows
// ($XDG_DATA_HOME/nodegraph or ~/.local/share/nodegraph).
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
