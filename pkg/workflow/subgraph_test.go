package workflow

import (
	"bytes"
	"testing"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
)

// buildSubgraph returns a root graph holding a definition that passes an
// IMAGE through a node and a root graph instance wired to it.
func buildSubgraph(t *testing.T) (*Graph, *Subgraph, NodeID) {
	t.Helper()
	g := newTestGraph(t)
	s, err := g.CreateSubgraph("Passthrough")
	if err != nil {
		t.Fatal(err)
	}
	s.AddInput("image", "IMAGE")
	s.AddOutput("image", "IMAGE")
	inner := mustAdd(t, s.Graph, "Any", geom.Pt(0, 0))
	if _, err := s.ConnectSubgraphInput(0, inner, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ConnectSubgraphOutput(inner, 0, 0); err != nil {
		t.Fatal(err)
	}

	load := mustAdd(t, g, "LoadImage", geom.Pt(0, 0))
	inst := mustAdd(t, g, s.ID().String(), geom.Pt(300, 0))
	prev := mustAdd(t, g, "PreviewImage", geom.Pt(600, 0))
	mustConnect(t, g, load, 0, inst, 0)
	mustConnect(t, g, inst, 0, prev, 0)
	return g, s, inst
}

func TestSubgraphInstance(t *testing.T) {
	g, s, inst := buildSubgraph(t)
	n, _ := g.Node(inst)
	if !n.IsSubgraphNode() || n.Title != "Passthrough" {
		t.Errorf("instance = %+v", n)
	}
	if len(n.Inputs()) != 1 || n.Input(0).Type != "IMAGE" || len(n.Outputs()) != 1 {
		t.Errorf("instance slots = %d/%d", len(n.Inputs()), len(n.Outputs()))
	}
	if got := s.Inputs()[0].LinkIDs(); len(got) != 1 {
		t.Errorf("subgraph input links = %v", got)
	}
	if s.IsRoot() || !g.IsRoot() {
		t.Error("IsRoot mismatch")
	}
	checkConsistency(t, g)
	checkConsistency(t, s.Graph)
}

func TestSubgraphIOEditsInstances(t *testing.T) {
	g, s, inst := buildSubgraph(t)
	s.AddInput("mask", "MASK")
	n, _ := g.Node(inst)
	if len(n.Inputs()) != 2 || n.Input(1).Name != "mask" {
		t.Fatalf("instance inputs = %d", len(n.Inputs()))
	}

	if err := s.RemoveInput(0); err != nil {
		t.Fatal(err)
	}
	if len(n.Inputs()) != 1 || n.Input(0).Name != "mask" {
		t.Errorf("instance inputs after remove = %+v", n.Inputs())
	}
	// The root link into the removed slot went with it.
	if g.LinkCount() != 1 {
		t.Errorf("root LinkCount = %d, want 1", g.LinkCount())
	}
	// So did the inner link from the removed subgraph input.
	if s.LinkCount() != 1 {
		t.Errorf("subgraph LinkCount = %d, want 1", s.LinkCount())
	}
	if err := s.RemoveOutput(3); !errors.Is(err, errors.ErrCodeSlotOutOfRange) {
		t.Errorf("RemoveOutput(3) = %v", err)
	}
	checkConsistency(t, g)
	checkConsistency(t, s.Graph)
}

func TestRemoveSubgraphInUse(t *testing.T) {
	g, s, inst := buildSubgraph(t)
	if err := g.RemoveSubgraph(s.ID()); !errors.Is(err, errors.ErrCodeInvalidOperation) {
		t.Errorf("RemoveSubgraph in use = %v", err)
	}
	g.RemoveNode(inst)
	if err := g.RemoveSubgraph(s.ID()); err != nil {
		t.Errorf("RemoveSubgraph = %v", err)
	}
	if err := g.RemoveSubgraph(s.ID()); !errors.Is(err, errors.ErrCodeSubgraphNotFound) {
		t.Errorf("second RemoveSubgraph = %v", err)
	}
}

func TestSubgraphRecursionRejected(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.CreateSubgraph("A")
	b, _ := g.CreateSubgraph("B")
	mustAdd(t, a.Graph, b.ID().String(), geom.Pt(0, 0))

	self, _ := a.CreateNode(a.ID().String())
	if _, err := a.AddNode(self); !errors.Is(err, errors.ErrCodeInvalidOperation) {
		t.Errorf("self nesting = %v", err)
	}
	cyc, _ := b.CreateNode(a.ID().String())
	if _, err := b.AddNode(cyc); !errors.Is(err, errors.ErrCodeInvalidOperation) {
		t.Errorf("cyclic nesting = %v", err)
	}
	if _, err := a.CreateSubgraph("nested"); !errors.Is(err, errors.ErrCodeInvalidOperation) {
		t.Errorf("CreateSubgraph on subgraph = %v", err)
	}
}

func TestSubgraphRoundTrip(t *testing.T) {
	g, s, _ := buildSubgraph(t)
	unused, _ := g.CreateSubgraph("Unused")

	doc := g.Serialize()
	if doc.Definitions == nil || len(doc.Definitions.Subgraphs) != 1 {
		t.Fatalf("definitions = %+v", doc.Definitions)
	}
	def := doc.Definitions.Subgraphs[0]
	if def.ID != s.ID().String() || def.Name != "Passthrough" || len(def.Links) != 2 {
		t.Errorf("definition = %+v", def)
	}
	if def.InputNode.ID != SubgraphInputNodeID || def.OutputNode.ID != SubgraphOutputNodeID {
		t.Errorf("io nodes = %+v / %+v", def.InputNode, def.OutputNode)
	}
	if _, ok := g.Subgraph(unused.ID()); !ok {
		t.Error("unused definition missing from graph")
	}

	first := marshal(t, g)
	again, report := reload(t, g)
	if !report.Clean() || report.Subgraphs != 1 {
		t.Errorf("report = %+v", report)
	}
	if second := marshal(t, again); !bytes.Equal(first, second) {
		t.Errorf("round trip differs:\n%s\n---\n%s", first, second)
	}
	loaded, ok := again.Subgraph(s.ID())
	if !ok {
		t.Fatal("definition not loaded")
	}
	checkConsistency(t, loaded.Graph)
	if got := loaded.Outputs()[0].LinkIDs(); len(got) != 1 {
		t.Errorf("output links = %v", got)
	}
}
