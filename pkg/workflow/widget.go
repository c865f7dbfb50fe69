package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/registry"
)

// WidgetKind names a widget variant.
type WidgetKind string

const (
	WidgetNumber  WidgetKind = "number"
	WidgetCombo   WidgetKind = "combo"
	WidgetText    WidgetKind = "text"
	WidgetToggle  WidgetKind = "toggle"
	WidgetButton  WidgetKind = "button"
	WidgetPreview WidgetKind = "preview"
	WidgetRaw     WidgetKind = "raw"
)

// Widget is an inline editor attached to a node. Each kind carries its own
// value type; the methods below are the uniform surface the graph uses to
// read, write and persist values.
//
// Widgets whose Serializes method returns false (buttons, previews) are
// skipped when a node's widgets_values are written and read.
type Widget interface {
	Name() string
	Kind() WidgetKind
	Value() any
	SetValue(v any) error
	Serializes() bool
	MarshalValue() (json.RawMessage, error)
	UnmarshalValue(data json.RawMessage) error
}

// =============================================================================
// Number
// =============================================================================

// NumberWidget holds a number, clamped to [Min, Max] when set through
// SetValue.
//
// Integers are kept exactly alongside their float64 approximation, so seeds
// and other values beyond 2^53 survive a load/save cycle. Loaded values keep
// their source text.
type NumberWidget struct {
	name  string
	value float64
	exact json.Number
	Min   *float64
	Max   *float64
	Step  float64
}

// NewNumberWidget returns a number widget with value v.
func NewNumberWidget(name string, v float64) *NumberWidget {
	return &NumberWidget{name: name, value: v}
}

func (w *NumberWidget) Name() string     { return w.name }
func (w *NumberWidget) Kind() WidgetKind { return WidgetNumber }
func (w *NumberWidget) Value() any       { return w.value }
func (w *NumberWidget) Serializes() bool { return true }

// Float returns the current value.
func (w *NumberWidget) Float() float64 { return w.value }

// Number returns the current value as written: the exact text for integers
// and loaded values, the shortest float64 text otherwise.
func (w *NumberWidget) Number() json.Number {
	if w.exact != "" {
		return w.exact
	}
	return json.Number(strconv.FormatFloat(w.value, 'g', -1, 64))
}

// SetValue accepts any Go number or json.Number.
func (w *NumberWidget) SetValue(v any) error {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "widget %s: %v is not a finite number", w.name, v)
	}
	exact := exactNumber(v)
	if w.Min != nil && f < *w.Min {
		f, exact = *w.Min, ""
	}
	if w.Max != nil && f > *w.Max {
		f, exact = *w.Max, ""
	}
	w.value = f
	w.exact = exact
	return nil
}

func (w *NumberWidget) MarshalValue() (json.RawMessage, error) {
	if w.exact != "" {
		return json.RawMessage(w.exact), nil
	}
	return json.Marshal(w.value)
}

// UnmarshalValue stores the value as written, without clamping.
func (w *NumberWidget) UnmarshalValue(data json.RawMessage) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' {
		return fmt.Errorf("widget %s: %s is not a number", w.name, data)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("widget %s: %w", w.name, err)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("widget %s: %w", w.name, err)
	}
	w.value = f
	w.exact = n
	return nil
}

// exactNumber returns the decimal text of integer and json.Number values.
func exactNumber(v any) json.Number {
	switch n := v.(type) {
	case int:
		return json.Number(strconv.Itoa(n))
	case int32:
		return json.Number(strconv.FormatInt(int64(n), 10))
	case int64:
		return json.Number(strconv.FormatInt(n, 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(n), 10))
	case uint32:
		return json.Number(strconv.FormatUint(uint64(n), 10))
	case uint64:
		return json.Number(strconv.FormatUint(n, 10))
	case json.Number:
		return n
	}
	return ""
}

// =============================================================================
// Combo
// =============================================================================

// ComboWidget selects one of a list of string options.
type ComboWidget struct {
	name    string
	value   string
	Options []string
}

// NewComboWidget returns a combo widget with value v.
func NewComboWidget(name, v string, options ...string) *ComboWidget {
	return &ComboWidget{name: name, value: v, Options: options}
}

func (w *ComboWidget) Name() string     { return w.name }
func (w *ComboWidget) Kind() WidgetKind { return WidgetCombo }
func (w *ComboWidget) Value() any       { return w.value }
func (w *ComboWidget) Serializes() bool { return true }

// SetValue requires a string that is one of Options, when Options is set.
func (w *ComboWidget) SetValue(v any) error {
	s, ok := v.(string)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "widget %s: %v is not a string", w.name, v)
	}
	if len(w.Options) > 0 && !slices.Contains(w.Options, s) {
		return errors.New(errors.ErrCodeInvalidInput, "widget %s: %q is not an option", w.name, s)
	}
	w.value = s
	return nil
}

func (w *ComboWidget) MarshalValue() (json.RawMessage, error) {
	return json.Marshal(w.value)
}

// UnmarshalValue accepts any string, including values missing from
// Options: documents often reference files that are not present locally.
func (w *ComboWidget) UnmarshalValue(data json.RawMessage) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("widget %s: %w", w.name, err)
	}
	w.value = s
	return nil
}

// =============================================================================
// Text
// =============================================================================

// TextWidget holds free text.
type TextWidget struct {
	name      string
	value     string
	Multiline bool
}

// NewTextWidget returns a text widget with value v.
func NewTextWidget(name, v string) *TextWidget {
	return &TextWidget{name: name, value: v}
}

func (w *TextWidget) Name() string     { return w.name }
func (w *TextWidget) Kind() WidgetKind { return WidgetText }
func (w *TextWidget) Value() any       { return w.value }
func (w *TextWidget) Serializes() bool { return true }

func (w *TextWidget) SetValue(v any) error {
	s, ok := v.(string)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "widget %s: %v is not a string", w.name, v)
	}
	w.value = s
	return nil
}

func (w *TextWidget) MarshalValue() (json.RawMessage, error) {
	return json.Marshal(w.value)
}

func (w *TextWidget) UnmarshalValue(data json.RawMessage) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("widget %s: %w", w.name, err)
	}
	w.value = s
	return nil
}

// =============================================================================
// Toggle
// =============================================================================

// ToggleWidget holds a boolean.
type ToggleWidget struct {
	name  string
	value bool
}

// NewToggleWidget returns a toggle widget with value v.
func NewToggleWidget(name string, v bool) *ToggleWidget {
	return &ToggleWidget{name: name, value: v}
}

func (w *ToggleWidget) Name() string     { return w.name }
func (w *ToggleWidget) Kind() WidgetKind { return WidgetToggle }
func (w *ToggleWidget) Value() any       { return w.value }
func (w *ToggleWidget) Serializes() bool { return true }

func (w *ToggleWidget) SetValue(v any) error {
	b, ok := v.(bool)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "widget %s: %v is not a bool", w.name, v)
	}
	w.value = b
	return nil
}

func (w *ToggleWidget) MarshalValue() (json.RawMessage, error) {
	return json.Marshal(w.value)
}

func (w *ToggleWidget) UnmarshalValue(data json.RawMessage) error {
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("widget %s: %w", w.name, err)
	}
	w.value = b
	return nil
}

// =============================================================================
// Button and Preview (never serialized)
// =============================================================================

// ButtonWidget triggers an action and has no value.
type ButtonWidget struct {
	name string
}

// NewButtonWidget returns a button.
func NewButtonWidget(name string) *ButtonWidget { return &ButtonWidget{name: name} }

func (w *ButtonWidget) Name() string                             { return w.name }
func (w *ButtonWidget) Kind() WidgetKind                         { return WidgetButton }
func (w *ButtonWidget) Value() any                               { return nil }
func (w *ButtonWidget) SetValue(any) error                       { return nil }
func (w *ButtonWidget) Serializes() bool                         { return false }
func (w *ButtonWidget) MarshalValue() (json.RawMessage, error)   { return nil, nil }
func (w *ButtonWidget) UnmarshalValue(data json.RawMessage) error { return nil }

// PreviewWidget holds transient display data such as generated image
// references. Its value is never persisted.
type PreviewWidget struct {
	name  string
	value any
}

// NewPreviewWidget returns an empty preview.
func NewPreviewWidget(name string) *PreviewWidget { return &PreviewWidget{name: name} }

func (w *PreviewWidget) Name() string                             { return w.name }
func (w *PreviewWidget) Kind() WidgetKind                         { return WidgetPreview }
func (w *PreviewWidget) Value() any                               { return w.value }
func (w *PreviewWidget) SetValue(v any) error                     { w.value = v; return nil }
func (w *PreviewWidget) Serializes() bool                         { return false }
func (w *PreviewWidget) MarshalValue() (json.RawMessage, error)   { return nil, nil }
func (w *PreviewWidget) UnmarshalValue(data json.RawMessage) error { return nil }

// =============================================================================
// Raw
// =============================================================================

// RawWidget preserves a value verbatim. Nodes whose type is unknown, and
// values that do not fit their declared widget kind, load as raw widgets
// so that a document survives a load/save cycle unchanged.
type RawWidget struct {
	name string
	raw  json.RawMessage
}

// NewRawWidget returns a raw widget holding data.
func NewRawWidget(name string, data json.RawMessage) *RawWidget {
	return &RawWidget{name: name, raw: slices.Clone(data)}
}

func (w *RawWidget) Name() string     { return w.name }
func (w *RawWidget) Kind() WidgetKind { return WidgetRaw }
func (w *RawWidget) Serializes() bool { return true }

// Value decodes the held JSON into a generic Go value.
func (w *RawWidget) Value() any {
	if len(w.raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(w.raw, &v); err != nil {
		return nil
	}
	return v
}

func (w *RawWidget) SetValue(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "widget %s", w.name)
	}
	w.raw = data
	return nil
}

func (w *RawWidget) MarshalValue() (json.RawMessage, error) {
	if len(w.raw) == 0 {
		return json.RawMessage("null"), nil
	}
	return w.raw, nil
}

func (w *RawWidget) UnmarshalValue(data json.RawMessage) error {
	w.raw = slices.Clone(data)
	return nil
}

// =============================================================================
// Construction
// =============================================================================

// NewWidget builds a widget from a registry definition.
func NewWidget(def registry.WidgetDef) (Widget, error) {
	switch WidgetKind(def.Kind) {
	case WidgetNumber:
		w := &NumberWidget{name: def.Name, Min: def.Min, Max: def.Max, Step: def.Step}
		if def.Default != nil {
			if err := w.SetValue(def.Default); err != nil {
				return nil, err
			}
		}
		return w, nil
	case WidgetCombo:
		w := &ComboWidget{name: def.Name, Options: slices.Clone(def.Options)}
		switch d := def.Default.(type) {
		case string:
			w.value = d
		case nil:
			if len(def.Options) > 0 {
				w.value = def.Options[0]
			}
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "widget %s: default %v is not a string", def.Name, d)
		}
		return w, nil
	case WidgetText:
		w := &TextWidget{name: def.Name}
		if def.Default != nil {
			if err := w.SetValue(def.Default); err != nil {
				return nil, err
			}
		}
		return w, nil
	case WidgetToggle:
		w := &ToggleWidget{name: def.Name}
		if def.Default != nil {
			if err := w.SetValue(def.Default); err != nil {
				return nil, err
			}
		}
		return w, nil
	case WidgetButton:
		return NewButtonWidget(def.Name), nil
	case WidgetPreview:
		return NewPreviewWidget(def.Name), nil
	case WidgetRaw:
		w := NewRawWidget(def.Name, nil)
		if def.Default != nil {
			if err := w.SetValue(def.Default); err != nil {
				return nil, err
			}
		}
		return w, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "widget %s: unknown kind %q", def.Name, def.Kind)
}

// cloneWidget returns an independent copy of w.
func cloneWidget(w Widget) Widget {
	switch w := w.(type) {
	case *NumberWidget:
		c := *w
		return &c
	case *ComboWidget:
		c := *w
		c.Options = slices.Clone(w.Options)
		return &c
	case *TextWidget:
		c := *w
		return &c
	case *ToggleWidget:
		c := *w
		return &c
	case *ButtonWidget:
		return NewButtonWidget(w.name)
	case *PreviewWidget:
		return NewPreviewWidget(w.name)
	case *RawWidget:
		return NewRawWidget(w.name, w.raw)
	}
	data, err := w.MarshalValue()
	if err != nil {
		return NewRawWidget(w.Name(), nil)
	}
	return NewRawWidget(w.Name(), data)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
