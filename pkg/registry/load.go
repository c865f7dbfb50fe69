package registry

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// file is the TOML layout of a registry file:
//
//	strict = false
//
//	[slot_colors]
//	IMAGE = "#64B5F6"
//
//	[[types]]
//	name = "LoadImage"
//	size = [315, 314]
//	  [[types.outputs]]
//	  name = "IMAGE"
//	  type = "IMAGE"
//	  [[types.widgets]]
//	  name = "image"
//	  kind = "combo"
//	  options = ["example.png"]
type file struct {
	Strict     *bool             `toml:"strict"`
	SlotColors map[string]string `toml:"slot_colors"`
	Types      []NodeType        `toml:"types"`
}

// Load reads node types and slot colours from TOML into r. Types already
// registered cause an error; slot colours overwrite.
func (r *Registry) Load(rd io.Reader) error {
	var f file
	if _, err := toml.NewDecoder(rd).Decode(&f); err != nil {
		return fmt.Errorf("decode registry: %w", err)
	}
	return r.apply(f)
}

// LoadFile reads a TOML registry file into r.
func (r *Registry) LoadFile(path string) error {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("decode registry %s: %w", path, err)
	}
	return r.apply(f)
}

// Open creates a registry from the given TOML files, in order.
func Open(paths ...string) (*Registry, error) {
	r := New()
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("registry %s: %w", p, err)
		}
		if err := r.LoadFile(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) apply(f file) error {
	if f.Strict != nil {
		r.mu.Lock()
		r.strict = *f.Strict
		r.mu.Unlock()
	}
	for typ, color := range f.SlotColors {
		r.SetSlotColor(typ, color)
	}
	for _, t := range f.Types {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
