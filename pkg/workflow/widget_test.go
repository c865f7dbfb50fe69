package workflow

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/registry"
)

func TestNumberWidgetClamps(t *testing.T) {
	w := &NumberWidget{name: "steps", Min: fp(1), Max: fp(100)}
	tests := []struct {
		in   any
		want float64
	}{
		{50, 50},
		{0, 1},
		{int64(500), 100},
		{float32(2.5), 2.5},
		{json.Number("7"), 7},
	}
	for _, tt := range tests {
		if err := w.SetValue(tt.in); err != nil {
			t.Fatalf("SetValue(%v): %v", tt.in, err)
		}
		if w.Float() != tt.want {
			t.Errorf("SetValue(%v) = %v, want %v", tt.in, w.Float(), tt.want)
		}
	}
	if err := w.SetValue("seven"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetValue(string) = %v", err)
	}
	// Loaded values are kept as written.
	if err := w.UnmarshalValue(json.RawMessage(`250`)); err != nil || w.Float() != 250 {
		t.Errorf("UnmarshalValue = %v, value %v", err, w.Float())
	}
}

func TestNumberWidgetKeepsIntegers(t *testing.T) {
	tests := []struct {
		name string
		max  *float64
		set  func(w *NumberWidget) error
		want string
	}{
		{"max uint64 loaded", nil, func(w *NumberWidget) error {
			return w.UnmarshalValue(json.RawMessage(`18446744073709551615`))
		}, "18446744073709551615"},
		{"source text kept", nil, func(w *NumberWidget) error {
			return w.UnmarshalValue(json.RawMessage(` 1.50 `))
		}, "1.50"},
		{"int64 set", nil, func(w *NumberWidget) error { return w.SetValue(int64(9007199254740993)) }, "9007199254740993"},
		{"uint64 set", nil, func(w *NumberWidget) error { return w.SetValue(uint64(1<<63 + 1)) }, "9223372036854775809"},
		{"float set", nil, func(w *NumberWidget) error { return w.SetValue(0.25) }, "0.25"},
		{"clamped", fp(1000), func(w *NumberWidget) error { return w.SetValue(int64(1 << 60)) }, "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &NumberWidget{name: "seed", Max: tt.max}
			if err := tt.set(w); err != nil {
				t.Fatal(err)
			}
			data, err := w.MarshalValue()
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("MarshalValue = %s, want %s", data, tt.want)
			}
			if w.Number().String() != tt.want {
				t.Errorf("Number = %s, want %s", w.Number(), tt.want)
			}
		})
	}

	w := NewNumberWidget("seed", 0)
	if err := w.UnmarshalValue(json.RawMessage(`"12"`)); err == nil {
		t.Error("UnmarshalValue accepted a string")
	}
}

func TestComboWidget(t *testing.T) {
	w := NewComboWidget("sampler", "euler", "euler", "dpm")
	if err := w.SetValue("dpm"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetValue("ddim"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SetValue(ddim) = %v", err)
	}
	if err := w.UnmarshalValue(json.RawMessage(`"missing.png"`)); err != nil || w.Value() != "missing.png" {
		t.Errorf("UnmarshalValue = %v, value %v", err, w.Value())
	}
	if err := w.UnmarshalValue(json.RawMessage(`3`)); err == nil {
		t.Error("UnmarshalValue accepted a number")
	}
}

func TestRawWidget(t *testing.T) {
	w := NewRawWidget("x", json.RawMessage(`{"a":[1,2]}`))
	v, ok := w.Value().(map[string]any)
	if !ok || len(v["a"].([]any)) != 2 {
		t.Errorf("Value = %#v", w.Value())
	}
	data, _ := w.MarshalValue()
	if string(data) != `{"a":[1,2]}` {
		t.Errorf("MarshalValue = %s", data)
	}
	empty := NewRawWidget("y", nil)
	if data, _ := empty.MarshalValue(); string(data) != "null" {
		t.Errorf("empty MarshalValue = %s", data)
	}
}

func TestNewWidget(t *testing.T) {
	tests := []struct {
		name     string
		def      registry.WidgetDef
		wantKind WidgetKind
		wantVal  any
		wantErr  bool
	}{
		{"Number", registry.WidgetDef{Name: "n", Kind: "number", Default: 3}, WidgetNumber, 3.0, false},
		{"ComboFirstOption", registry.WidgetDef{Name: "c", Kind: "combo", Options: []string{"a", "b"}}, WidgetCombo, "a", false},
		{"ComboBadDefault", registry.WidgetDef{Name: "c", Kind: "combo", Default: 1}, "", nil, true},
		{"Text", registry.WidgetDef{Name: "t", Kind: "text", Default: "hi"}, WidgetText, "hi", false},
		{"Toggle", registry.WidgetDef{Name: "b", Kind: "toggle", Default: true}, WidgetToggle, true, false},
		{"Button", registry.WidgetDef{Name: "go", Kind: "button"}, WidgetButton, nil, false},
		{"Unknown", registry.WidgetDef{Name: "u", Kind: "slider"}, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWidget(tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if w.Kind() != tt.wantKind || w.Value() != tt.wantVal {
				t.Errorf("widget = %s %v, want %s %v", w.Kind(), w.Value(), tt.wantKind, tt.wantVal)
			}
		})
	}
}

func TestNonSerializingWidgetsSkipped(t *testing.T) {
	g := newTestGraph(t)
	n, _ := g.CreateNode("LoadImage")
	n.AddWidget(NewPreviewWidget("preview"))
	n.AddWidget(NewToggleWidget("keep", true))
	if _, err := g.AddNode(n); err != nil {
		t.Fatal(err)
	}

	doc := g.Serialize()
	vals := doc.Nodes[0].WidgetsValues
	if len(vals) != 2 || string(vals[0]) != `"a.png"` || string(vals[1]) != "true" {
		t.Errorf("widgets_values = %s", vals)
	}
}

func TestCloneWidgetIndependent(t *testing.T) {
	orig := NewComboWidget("c", "a", "a", "b")
	c := cloneWidget(orig).(*ComboWidget)
	c.Options[0] = "z"
	if orig.Options[0] != "a" {
		t.Error("clone shares Options")
	}
}
