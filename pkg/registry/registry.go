package registry

import (
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/nodegraph/pkg/errors"
)

// SlotDef declares an input or output slot of a node type.
type SlotDef struct {
	Name  string `toml:"name" json:"name"`
	Type  string `toml:"type" json:"type"`
	Label string `toml:"label,omitempty" json:"label,omitempty"`
}

// WidgetDef declares a widget of a node type. Kind is one of the widget
// kinds understood by package workflow ("number", "combo", "text",
// "toggle", "button", "preview").
type WidgetDef struct {
	Name    string   `toml:"name" json:"name"`
	Kind    string   `toml:"kind" json:"kind"`
	Default any      `toml:"default,omitempty" json:"default,omitempty"`
	Options []string `toml:"options,omitempty" json:"options,omitempty"`
	Min     *float64 `toml:"min,omitempty" json:"min,omitempty"`
	Max     *float64 `toml:"max,omitempty" json:"max,omitempty"`
	Step    float64  `toml:"step,omitempty" json:"step,omitempty"`
}

// NodeType describes how to instantiate a node of a given type name.
type NodeType struct {
	Name     string      `toml:"name" json:"name"`
	Title    string      `toml:"title,omitempty" json:"title,omitempty"`
	Category string      `toml:"category,omitempty" json:"category,omitempty"`
	Size     [2]float64  `toml:"size,omitempty" json:"size,omitempty"`
	Inputs   []SlotDef   `toml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs  []SlotDef   `toml:"outputs,omitempty" json:"outputs,omitempty"`
	Widgets  []WidgetDef `toml:"widgets,omitempty" json:"widgets,omitempty"`
}

// Registry maps node type names to their definitions and slot type names
// to display colours. It is constructed by the caller and injected into
// each graph; there is no process-wide instance.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]*NodeType
	slotColors map[string]string
	strict     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes graphs drop nodes whose type is not registered when a
// document is loaded. The default keeps them as placeholders.
func WithStrict(strict bool) Option {
	return func(r *Registry) { r.strict = strict }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		types:      make(map[string]*NodeType),
		slotColors: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strict reports whether unknown node types are dropped on load.
func (r *Registry) Strict() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strict
}

// Register adds a node type. Returns an error if the name is invalid or
// already registered.
func (r *Registry) Register(t NodeType) error {
	if err := errors.ValidateTypeName(t.Name); err != nil {
		return err
	}
	for _, s := range slices.Concat(t.Inputs, t.Outputs) {
		if err := errors.ValidateTypeName(s.Type); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidTypeName, err, "node type %s slot %s", t.Name, s.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return errors.New(errors.ErrCodeDuplicateID, "node type %s already registered", t.Name)
	}
	r.types[t.Name] = &t
	return nil
}

// Lookup returns the definition for a type name.
func (r *Registry) Lookup(name string) (*NodeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Types returns every registered type sorted by name.
func (r *Registry) Types() []*NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NodeType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *NodeType) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// SetSlotColor sets the link colour for a slot type.
func (r *Registry) SetSlotColor(slotType, color string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slotColors[strings.ToLower(slotType)] = color
}

// SlotColor returns the colour for a slot type, or "" if none is set.
func (r *Registry) SlotColor(slotType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slotColors[strings.ToLower(slotType)]
}

// Compatible reports whether an output of type out may feed an input of
// type in. See [Compatible].
func (r *Registry) Compatible(out, in string) bool {
	return Compatible(out, in)
}

// Compatible reports whether an output of type out may feed an input of
// type in:
//   - "" and "*" match anything
//   - names compare case-insensitively
//   - comma-separated names match if any pair matches
func Compatible(out, in string) bool {
	if isWildcard(out) || isWildcard(in) || out == in {
		return true
	}
	a, b := strings.ToLower(out), strings.ToLower(in)
	if !strings.Contains(a, ",") && !strings.Contains(b, ",") {
		return a == b
	}
	for _, x := range strings.Split(a, ",") {
		for _, y := range strings.Split(b, ",") {
			x, y = strings.TrimSpace(x), strings.TrimSpace(y)
			if isWildcard(x) || isWildcard(y) || x == y {
				return true
			}
		}
	}
	return false
}

func isWildcard(t string) bool { return t == "" || t == "*" }
