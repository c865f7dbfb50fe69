package workflow

import (
	"testing"

	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/registry"
)

func fp(f float64) *float64 { return &f }

func testRegistry(t testing.TB, opts ...registry.Option) *registry.Registry {
	t.Helper()
	r := registry.New(opts...)
	types := []registry.NodeType{
		{
			Name:    "LoadImage",
			Title:   "Load Image",
			Outputs: []registry.SlotDef{{Name: "IMAGE", Type: "IMAGE"}, {Name: "MASK", Type: "MASK"}},
			Widgets: []registry.WidgetDef{
				{Name: "image", Kind: "combo", Options: []string{"a.png", "b.png"}},
				{Name: "upload", Kind: "button"},
			},
		},
		{
			Name:   "PreviewImage",
			Inputs: []registry.SlotDef{{Name: "images", Type: "IMAGE"}},
		},
		{
			Name:    "KSampler",
			Inputs:  []registry.SlotDef{{Name: "model", Type: "MODEL"}, {Name: "latent", Type: "LATENT"}},
			Outputs: []registry.SlotDef{{Name: "LATENT", Type: "LATENT"}},
			Widgets: []registry.WidgetDef{
				{Name: "seed", Kind: "number", Default: 0},
				{Name: "steps", Kind: "number", Default: 20, Min: fp(1), Max: fp(100)},
				{Name: "sampler", Kind: "combo", Options: []string{"euler", "dpm"}},
				{Name: "denoise", Kind: "number", Default: 1.0},
			},
		},
		{
			Name:    "PrimitiveInt",
			Outputs: []registry.SlotDef{{Name: "INT", Type: "INT"}},
		},
		{
			Name:    "StringConcat",
			Inputs:  []registry.SlotDef{{Name: "a", Type: "STRING"}, {Name: "b", Type: "STRING"}},
			Outputs: []registry.SlotDef{{Name: "STRING", Type: "STRING"}},
		},
		{
			Name:    "Any",
			Inputs:  []registry.SlotDef{{Name: "in", Type: "*"}},
			Outputs: []registry.SlotDef{{Name: "out", Type: "*"}},
		},
	}
	for _, nt := range types {
		if err := r.Register(nt); err != nil {
			t.Fatalf("Register(%s): %v", nt.Name, err)
		}
	}
	return r
}

func newTestGraph(t testing.TB) *Graph {
	t.Helper()
	return New(Options{Registry: testRegistry(t)})
}

// mustAdd creates a node of type typ at pos and adds it to g.
func mustAdd(t testing.TB, g *Graph, typ string, pos geom.Point) NodeID {
	t.Helper()
	n, err := g.CreateNode(typ)
	if err != nil {
		t.Fatalf("CreateNode(%s): %v", typ, err)
	}
	n.SetPos(pos)
	id, err := g.AddNode(n)
	if err != nil {
		t.Fatalf("AddNode(%s): %v", typ, err)
	}
	return id
}

func mustConnect(t testing.TB, g *Graph, a NodeID, as int, b NodeID, bs int) Link {
	t.Helper()
	l, err := g.Connect(a, as, b, bs)
	if err != nil {
		t.Fatalf("Connect(%s:%d -> %s:%d): %v", a, as, b, bs, err)
	}
	return l
}

// checkConsistency verifies that slot link references, link records and
// reroute membership agree.
func checkConsistency(t *testing.T, g *Graph) {
	t.Helper()
	for id, l := range g.links {
		if l.ID != id {
			t.Errorf("link %d stored under %d", l.ID, id)
		}
		in, err := g.inPort(l.TargetID, l.TargetSlot)
		if err != nil {
			t.Errorf("link %d: target: %v", id, err)
			continue
		}
		if got, ok := in.link(); !ok || got != id {
			t.Errorf("link %d: target input holds %d (%v)", id, got, ok)
		}
		out, err := g.outPort(l.OriginID, l.OriginSlot)
		if err != nil {
			t.Errorf("link %d: origin: %v", id, err)
			continue
		}
		found := 0
		for _, x := range *out.links {
			if x == id {
				found++
			}
		}
		if found != 1 {
			t.Errorf("link %d listed %d times on its output", id, found)
		}
		chain, err := g.chainFrom(l.ParentID)
		if err != nil {
			t.Errorf("link %d: chain: %v", id, err)
		}
		for _, rid := range chain {
			if _, ok := g.reroutes[rid].linkIDs[id]; !ok {
				t.Errorf("reroute %d does not list link %d", rid, id)
			}
		}
	}
	for _, n := range g.nodes {
		for i, in := range n.inputs {
			if l, ok := in.Link(); ok {
				if g.links[l] == nil || g.links[l].TargetID != n.id || g.links[l].TargetSlot != i {
					t.Errorf("node %s input %d refers to stale link %d", n.id, i, l)
				}
			}
		}
		for i, out := range n.outputs {
			for _, l := range out.links {
				if g.links[l] == nil || g.links[l].OriginID != n.id || g.links[l].OriginSlot != i {
					t.Errorf("node %s output %d refers to stale link %d", n.id, i, l)
				}
			}
		}
		if b, ok := g.nodeIndex.Bounds(n.id); !ok || b != n.Bounding() {
			t.Errorf("node %s index bounds %v, want %v", n.id, b, n.Bounding())
		}
	}
	for id, r := range g.reroutes {
		if len(r.linkIDs) == 0 {
			t.Errorf("reroute %d carries no links", id)
		}
		for l := range r.linkIDs {
			if g.links[l] == nil {
				t.Errorf("reroute %d lists missing link %d", id, l)
			}
		}
	}
	if g.nodeIndex.Len() != len(g.nodes) {
		t.Errorf("node index holds %d items, graph %d nodes", g.nodeIndex.Len(), len(g.nodes))
	}
	if g.rerouteIndex.Len() != len(g.reroutes) {
		t.Errorf("reroute index holds %d items, graph %d reroutes", g.rerouteIndex.Len(), len(g.reroutes))
	}
}
