package render

import (
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// Slot geometry. Slot centres sit SlotInset from the node's side edges;
// row i is centred at (i + 0.7) * SlotHeight below the body's top.
const (
	SlotHeight = workflow.NodeSlotHeight
	SlotInset  = 10
	SlotRadius = 6
)

// InputPos returns the centre of input slot i of n.
func InputPos(n *workflow.Node, i int) geom.Point {
	p := n.Pos()
	return geom.Pt(p.X+SlotInset, p.Y+(float64(i)+0.7)*SlotHeight)
}

// OutputPos returns the centre of output slot i of n.
func OutputPos(n *workflow.Node, i int) geom.Point {
	p := n.Pos()
	return geom.Pt(p.X+n.Size().W+1-SlotInset, p.Y+(float64(i)+0.7)*SlotHeight)
}

// SlotRect returns the hit area of a slot: the full slot row on the side
// the slot belongs to, half the node wide.
func SlotRect(n *workflow.Node, ref workflow.SlotRef) geom.Rect {
	p, w := n.Pos(), n.Size().W
	y := p.Y + float64(ref.Index)*SlotHeight
	if ref.Dir == workflow.DirOutput {
		return geom.R(p.X+w/2, y, w/2, SlotHeight)
	}
	return geom.R(p.X, y, w/2, SlotHeight)
}

// InputAt returns the input slot of n under p.
func InputAt(n *workflow.Node, p geom.Point) (int, bool) {
	for i := range n.Inputs() {
		if SlotRect(n, workflow.In(n.ID(), i)).Contains(p) {
			return i, true
		}
	}
	return 0, false
}

// OutputAt returns the output slot of n under p.
func OutputAt(n *workflow.Node, p geom.Point) (int, bool) {
	for i := range n.Outputs() {
		if SlotRect(n, workflow.Out(n.ID(), i)).Contains(p) {
			return i, true
		}
	}
	return 0, false
}

// SlotAt hit-tests the slots of the top-most node under p.
func SlotAt(g *workflow.Graph, p geom.Point) (workflow.SlotRef, bool) {
	n, ok := g.QueryNodeAtPoint(p)
	if !ok {
		return workflow.SlotRef{}, false
	}
	if i, ok := InputAt(n, p); ok {
		return workflow.In(n.ID(), i), true
	}
	if i, ok := OutputAt(n, p); ok {
		return workflow.Out(n.ID(), i), true
	}
	return workflow.SlotRef{}, false
}

// ioOutputPos and ioInputPos place slots on a subgraph's IO pseudo-nodes:
// subgraph inputs leave the right edge of the input node, subgraph outputs
// enter the left edge of the output node.
func ioOutputPos(r geom.Rect, i int) geom.Point {
	return geom.Pt(r.Right()-SlotInset, r.Y+(float64(i)+0.7)*SlotHeight)
}

func ioInputPos(r geom.Rect, i int) geom.Point {
	return geom.Pt(r.X+SlotInset, r.Y+(float64(i)+0.7)*SlotHeight)
}

// originPos resolves the start point of a link, including the subgraph
// input pseudo-node.
func originPos(g *workflow.Graph, id workflow.NodeID, slot int) (geom.Point, bool) {
	if id == workflow.SubgraphInputNodeID {
		s, ok := g.Definition()
		if !ok {
			return geom.Point{}, false
		}
		return ioOutputPos(s.InputNode(), slot), true
	}
	n, ok := g.Node(id)
	if !ok {
		return geom.Point{}, false
	}
	return OutputPos(n, slot), true
}

func targetPos(g *workflow.Graph, id workflow.NodeID, slot int) (geom.Point, bool) {
	if id == workflow.SubgraphOutputNodeID {
		s, ok := g.Definition()
		if !ok {
			return geom.Point{}, false
		}
		return ioInputPos(s.OutputNode(), slot), true
	}
	n, ok := g.Node(id)
	if !ok {
		return geom.Point{}, false
	}
	return InputPos(n, slot), true
}
