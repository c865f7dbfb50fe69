package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/registry"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

func sample(t *testing.T) *workflow.Graph {
	t.Helper()
	reg := registry.New()
	for _, nt := range []registry.NodeType{
		{Name: "Load", Title: "Load", Outputs: []registry.SlotDef{{Name: "IMAGE", Type: "IMAGE"}},
			Widgets: []registry.WidgetDef{{Name: "file", Kind: "text", Default: "cat.png"}}},
		{Name: "Preview", Title: "Preview", Inputs: []registry.SlotDef{{Name: "images", Type: "IMAGE"}}},
	} {
		if err := reg.Register(nt); err != nil {
			t.Fatal(err)
		}
	}
	g := workflow.New(workflow.Options{Registry: reg})
	add := func(typ string, p geom.Point) workflow.NodeID {
		n, _ := g.CreateNode(typ)
		n.SetPos(p)
		id, err := g.AddNode(n)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	a := add("Load", geom.Pt(0, 0))
	b := add("Preview", geom.Pt(400, 0))
	c := add("Preview", geom.Pt(400, 300))
	l1, _ := g.Connect(a, 0, b, 0)
	r, err := g.InsertReroute(geom.Pt(200, 50), l1.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.ConnectVia(a, 0, c, 0, r); err != nil {
		t.Fatal(err)
	}
	g.SetNodeMode(c, workflow.ModeBypass)
	if _, err := g.AddGroup(workflow.NewGroup("Outputs", geom.R(350, -50, 300, 500))); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	g := sample(t)

	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name: "Plain",
			contains: []string{
				`"n1" [label="Load"]`,
				`"r1" [shape=point`,
				`"n1" -> "r1" [arrowhead=none]`,
				`"r1" -> "n2" [label="IMAGE"]`,
				`"r1" -> "n3" [label="IMAGE"]`,
				`style="rounded,filled,dashed"`,
			},
			excludes: []string{"cluster_", "type: Load"},
		},
		{
			name:     "Detailed",
			opts:     Options{Detailed: true},
			contains: []string{`type: Load`, `file: cat.png`, `mode: bypass`},
		},
		{
			name:     "Groups",
			opts:     Options{Groups: true},
			contains: []string{"subgraph cluster_1 {", `label="Outputs"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(g, tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(dot, s) {
					t.Errorf("missing %q in:\n%s", s, dot)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(dot, s) {
					t.Errorf("unexpected %q in:\n%s", s, dot)
				}
			}
		})
	}
}

func TestSharedHopWrittenOnce(t *testing.T) {
	dot := ToDOT(sample(t), Options{})
	if n := strings.Count(dot, `"n1" -> "r1"`); n != 1 {
		t.Errorf("shared hop written %d times", n)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg/>")); string(got) != "<svg/>" {
		t.Errorf("no viewBox: %s", got)
	}
}
