package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadMissingDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "file" || cfg.Server.Addr != ":8080" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nodes.toml", `
[[types]]
name = "PreviewImage"
  [[types.inputs]]
  name = "images"
  type = "IMAGE"
`)
	path := writeFile(t, dir, "config.toml", `
[registry]
files = ["nodes.toml"]
strict = true

[index]
max_depth = 6

[store]
backend = "badger"
dir = "data"

[server]
addr = "127.0.0.1:9000"
read_timeout = "3s"

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Dir != filepath.Join(dir, "data") {
		t.Errorf("store dir = %s", cfg.Store.Dir)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("unset write timeout should keep default, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.LogLevel() != log.DebugLevel {
		t.Errorf("level = %v", cfg.LogLevel())
	}
	if got := cfg.IndexOptions().MaxDepth; got != 6 {
		t.Errorf("max depth = %d", got)
	}

	reg, err := cfg.OpenRegistry()
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	if !reg.Strict() {
		t.Error("registry should be strict")
	}
	if _, ok := reg.Lookup("PreviewImage"); !ok {
		t.Error("PreviewImage not registered")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Syntax", `[store`, "load config"},
		{"UnknownKey", "[store]\nbackend = \"file\"\nbogus = 1\n", "unknown keys"},
		{"UnknownBackend", "[store]\nbackend = \"etcd\"\n", "unknown store backend"},
		{"RedisNoURL", "[store]\nbackend = \"redis\"\n", "requires url"},
		{"BadLevel", "[log]\nlevel = \"loud\"\n", "log level"},
		{"NegativeIndex", "[index]\nmax_items = -1\n", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.toml", tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if p, _ := Path(); p != filepath.Join("/cfg", "nodegraph", "config.toml") {
		t.Errorf("Path() = %s", p)
	}
	if p, _ := DataDir(); p != filepath.Join("/data", "nodegraph") {
		t.Errorf("DataDir() = %s", p)
	}
}
