package workflow

import (
	"testing"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/registry"
)

func TestAddNode(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(g *Graph) *Node
		wantID   NodeID
		wantCode errors.Code
	}{
		{
			name:   "AssignsNextID",
			setup:  func(g *Graph) *Node { return NewNode("X") },
			wantID: IntID(1),
		},
		{
			name: "ExplicitIDRaisesCounter",
			setup: func(g *Graph) *Node {
				n := NewNode("X")
				_ = n.SetID(IntID(7))
				return n
			},
			wantID: IntID(7),
		},
		{
			name: "StringID",
			setup: func(g *Graph) *Node {
				n := NewNode("X")
				_ = n.SetID(StringID("0f9c1c2e-5a43-4b55-9d0c-0bd4ab1b6c1e"))
				return n
			},
			wantID: StringID("0f9c1c2e-5a43-4b55-9d0c-0bd4ab1b6c1e"),
		},
		{
			name: "DuplicateID",
			setup: func(g *Graph) *Node {
				a := NewNode("X")
				_ = a.SetID(IntID(3))
				_, _ = g.AddNode(a)
				b := NewNode("X")
				_ = b.SetID(IntID(3))
				return b
			},
			wantCode: errors.ErrCodeDuplicateID,
		},
		{
			name: "OwnedByOtherGraph",
			setup: func(g *Graph) *Node {
				other := New(Options{})
				n := NewNode("X")
				_, _ = other.AddNode(n)
				return n
			},
			wantCode: errors.ErrCodeInvalidOperation,
		},
		{
			name: "ReservedID",
			setup: func(g *Graph) *Node {
				n := NewNode("X")
				_ = n.SetID(SubgraphInputNodeID)
				return n
			},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "Nil",
			setup:    func(g *Graph) *Node { return nil },
			wantCode: errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Options{})
			id, err := g.AddNode(tt.setup(g))
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("AddNode error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddNode: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %s, want %s", id, tt.wantID)
			}
			if v, ok := id.Int(); ok && g.State().LastNodeID != v {
				t.Errorf("LastNodeID = %d, want %d", g.State().LastNodeID, v)
			}
		})
	}
}

func TestAddNodeSkipsTakenIDs(t *testing.T) {
	g := New(Options{})
	n := NewNode("X")
	_ = n.SetID(IntID(1))
	if _, err := g.AddNode(n); err != nil {
		t.Fatal(err)
	}
	// Counter is already 1, so the next free id is 2.
	id, err := g.AddNode(NewNode("X"))
	if err != nil {
		t.Fatal(err)
	}
	if id != IntID(2) {
		t.Errorf("id = %s, want 2", id)
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	g := newTestGraph(t)
	load := mustAdd(t, g, "LoadImage", geom.Pt(0, 0))
	p1 := mustAdd(t, g, "PreviewImage", geom.Pt(300, 0))
	p2 := mustAdd(t, g, "PreviewImage", geom.Pt(300, 200))
	l1 := mustConnect(t, g, load, 0, p1, 0)
	mustConnect(t, g, load, 0, p2, 0)
	if _, err := g.InsertReroute(geom.Pt(150, 20), l1.ID, 0); err != nil {
		t.Fatal(err)
	}

	g.RemoveNode(load)

	if g.NodeCount() != 2 || g.LinkCount() != 0 {
		t.Errorf("nodes=%d links=%d, want 2 and 0", g.NodeCount(), g.LinkCount())
	}
	if len(g.Reroutes()) != 0 {
		t.Errorf("reroutes = %v, want none", g.Reroutes())
	}
	for _, id := range []NodeID{p1, p2} {
		if _, ok := g.InputLink(id, 0); ok {
			t.Errorf("node %s still connected", id)
		}
	}
	if n, ok := g.QueryNodeAtPoint(geom.Pt(10, 10)); ok {
		t.Errorf("removed node still indexed: %s", n.ID())
	}
	checkConsistency(t, g)

	// Unknown ids are ignored.
	g.RemoveNode(IntID(99))
}

func TestSetNodePositionUpdatesIndex(t *testing.T) {
	g := newTestGraph(t)
	id := mustAdd(t, g, "PreviewImage", geom.Pt(0, 0))
	n, _ := g.Node(id)

	n.SetPos(geom.Pt(5000, 5000))
	if _, ok := g.QueryNodeAtPoint(geom.Pt(10, 10)); ok {
		t.Error("node still found at old position")
	}
	got, ok := g.QueryNodeAtPoint(geom.Pt(5010, 5010))
	if !ok || got.ID() != id {
		t.Errorf("QueryNodeAtPoint = %v, %v", got, ok)
	}

	n.SetSize(geom.Sz(400, 400))
	if hits := g.QueryNodesInBounds(geom.R(5300, 5300, 10, 10)); len(hits) != 1 {
		t.Errorf("QueryNodesInBounds after resize = %d hits, want 1", len(hits))
	}
	checkConsistency(t, g)
}

func TestQueryNodeAtPointTopMost(t *testing.T) {
	g := newTestGraph(t)
	a := mustAdd(t, g, "PreviewImage", geom.Pt(0, 0))
	b := mustAdd(t, g, "PreviewImage", geom.Pt(20, 0))

	if n, _ := g.QueryNodeAtPoint(geom.Pt(50, 10)); n.ID() != b {
		t.Errorf("top-most = %s, want %s", n.ID(), b)
	}
	g.BringToFront(a)
	if n, _ := g.QueryNodeAtPoint(geom.Pt(50, 10)); n.ID() != a {
		t.Errorf("after BringToFront top-most = %s, want %s", n.ID(), a)
	}
	// Moving keeps the stacking order.
	g.SetNodePosition(b, geom.Pt(21, 0))
	if n, _ := g.QueryNodeAtPoint(geom.Pt(50, 10)); n.ID() != a {
		t.Errorf("after move top-most = %s, want %s", n.ID(), a)
	}
}

func TestSetNodeMode(t *testing.T) {
	g := newTestGraph(t)
	id := mustAdd(t, g, "PreviewImage", geom.Pt(0, 0))
	var got []Event
	g.Subscribe(ObserverFunc(func(cs ChangeSet) { got = append(got, cs.Events...) }))

	n, _ := g.Node(id)
	n.SetMode(ModeBypass)
	n.SetMode(ModeBypass)

	if len(got) != 1 {
		t.Fatalf("events = %v, want one", got)
	}
	e := got[0]
	if e.Kind != EventModeChanged || e.OldMode != ModeAlways || e.NewMode != ModeBypass {
		t.Errorf("event = %+v", e)
	}
	if n.Mode().String() != "bypass" {
		t.Errorf("Mode() = %s", n.Mode())
	}
}

func TestRemoveInputRenumbersLinks(t *testing.T) {
	g := newTestGraph(t)
	a := mustAdd(t, g, "Any", geom.Pt(0, 0))
	b := mustAdd(t, g, "StringConcat", geom.Pt(300, 0))
	l0 := mustConnect(t, g, a, 0, b, 0)
	l1 := mustConnect(t, g, a, 0, b, 1)

	n, _ := g.Node(b)
	if err := n.RemoveInput(0); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Link(l0.ID); ok {
		t.Error("link into removed input survived")
	}
	l, ok := g.Link(l1.ID)
	if !ok || l.TargetSlot != 0 {
		t.Errorf("link %d target slot = %d, want 0", l1.ID, l.TargetSlot)
	}
	if err := n.RemoveInput(5); !errors.Is(err, errors.ErrCodeSlotOutOfRange) {
		t.Errorf("RemoveInput(5) = %v", err)
	}
	checkConsistency(t, g)
}

func TestRemoveOutputRenumbersLinks(t *testing.T) {
	g := newTestGraph(t)
	load := mustAdd(t, g, "LoadImage", geom.Pt(0, 0))
	sink := mustAdd(t, g, "Any", geom.Pt(300, 0))
	mask := mustConnect(t, g, load, 1, sink, 0)

	if err := g.RemoveOutput(load, 0); err != nil {
		t.Fatal(err)
	}
	l, _ := g.Link(mask.ID)
	if l.OriginSlot != 0 {
		t.Errorf("origin slot = %d, want 0", l.OriginSlot)
	}
	checkConsistency(t, g)
}

func TestCreateNode(t *testing.T) {
	t.Run("FromRegistry", func(t *testing.T) {
		g := newTestGraph(t)
		n, err := g.CreateNode("KSampler")
		if err != nil {
			t.Fatal(err)
		}
		if len(n.Inputs()) != 2 || len(n.Outputs()) != 1 || len(n.Widgets()) != 4 {
			t.Errorf("slots/widgets = %d/%d/%d", len(n.Inputs()), len(n.Outputs()), len(n.Widgets()))
		}
		if v := n.Widget("steps").Value(); v != 20.0 {
			t.Errorf("steps = %v, want 20", v)
		}
		if v := n.Widget("sampler").Value(); v != "euler" {
			t.Errorf("sampler = %v, want euler", v)
		}
		if n.Size().H < n.ComputeSize().H {
			t.Errorf("size %v smaller than computed %v", n.Size(), n.ComputeSize())
		}
	})
	t.Run("UnknownPermissive", func(t *testing.T) {
		g := newTestGraph(t)
		n, err := g.CreateNode("Mystery")
		if err != nil || n.Type != "Mystery" {
			t.Errorf("CreateNode = %v, %v", n, err)
		}
	})
	t.Run("UnknownStrict", func(t *testing.T) {
		g := New(Options{Registry: testRegistry(t, registry.WithStrict(true))})
		if _, err := g.CreateNode("Mystery"); !errors.Is(err, errors.ErrCodeNotFound) {
			t.Errorf("CreateNode error = %v, want NOT_FOUND", err)
		}
	})
}

func TestGroups(t *testing.T) {
	g := newTestGraph(t)
	inside := mustAdd(t, g, "PreviewImage", geom.Pt(50, 80))
	mustAdd(t, g, "PreviewImage", geom.Pt(900, 900))

	gid, err := g.AddGroup(NewGroup("Inputs", geom.R(0, 0, 400, 300)))
	if err != nil {
		t.Fatal(err)
	}
	inner, _ := g.AddGroup(NewGroup("Inner", geom.R(10, 10, 50, 50)))

	c, err := g.GroupChildren(gid)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Nodes) != 1 || c.Nodes[0] != inside {
		t.Errorf("nodes = %v, want [%s]", c.Nodes, inside)
	}
	if len(c.Groups) != 1 || c.Groups[0] != inner {
		t.Errorf("groups = %v, want [%d]", c.Groups, inner)
	}

	if gr, ok := g.GroupAtPoint(geom.Pt(20, 20)); !ok || gr.ID != inner {
		t.Errorf("GroupAtPoint = %v, %v; want inner group", gr, ok)
	}
	if err := g.SetGroupBounding(gid, geom.R(800, 800, 400, 400)); err != nil {
		t.Fatal(err)
	}
	c, _ = g.GroupChildren(gid)
	if len(c.Nodes) != 1 || c.Nodes[0] == inside {
		t.Errorf("after move nodes = %v", c.Nodes)
	}

	g.RemoveGroup(gid)
	if _, err := g.GroupChildren(gid); !errors.Is(err, errors.ErrCodeGroupNotFound) {
		t.Errorf("GroupChildren after remove = %v", err)
	}
}

func TestBounds(t *testing.T) {
	g := New(Options{})
	if b := g.Bounds(); b != (geom.Rect{}) {
		t.Errorf("empty Bounds = %v", b)
	}
	n := NewNode("X")
	n.SetPos(geom.Pt(10, 40))
	n.SetSize(geom.Sz(100, 50))
	_, _ = g.AddNode(n)
	if b := g.Bounds(); b != geom.R(10, 10, 100, 80) {
		t.Errorf("Bounds = %v", b)
	}
}

func TestClear(t *testing.T) {
	g := newTestGraph(t)
	a := mustAdd(t, g, "LoadImage", geom.Pt(0, 0))
	b := mustAdd(t, g, "PreviewImage", geom.Pt(300, 0))
	mustConnect(t, g, a, 0, b, 0)
	n, _ := g.Node(a)

	g.Clear()

	if g.NodeCount() != 0 || g.LinkCount() != 0 || g.State() != (State{}) {
		t.Errorf("after Clear nodes=%d links=%d state=%+v", g.NodeCount(), g.LinkCount(), g.State())
	}
	if n.Graph() != nil {
		t.Error("node still attached after Clear")
	}
	if g.IndexStats().Items != 0 {
		t.Errorf("index items = %d", g.IndexStats().Items)
	}
}
