package workflow

import (
	"maps"
	"slices"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
)

// InputSlot is a typed input port. It holds at most one link.
type InputSlot struct {
	Name  string
	Type  string
	Label string
	// Widget names the widget this input was converted from, if any.
	Widget string

	link    LinkID
	hasLink bool
}

// Link returns the connected link id.
func (s *InputSlot) Link() (LinkID, bool) { return s.link, s.hasLink }

func (s *InputSlot) setLink(id LinkID) { s.link, s.hasLink = id, true }
func (s *InputSlot) clearLink()        { s.link, s.hasLink = 0, false }

// OutputSlot is a typed output port. It holds any number of links, in
// connection order.
type OutputSlot struct {
	Name  string
	Type  string
	Label string

	links []LinkID
}

// Links returns the connected link ids.
func (s *OutputSlot) Links() []LinkID { return slices.Clone(s.links) }

// Node is a unit of computation with typed input and output slots and a
// list of widgets.
//
// A node is built with [NewNode] or [Graph.CreateNode] and owned by at most
// one graph after [Graph.AddNode]. Position, size, mode and slot list
// changes on an attached node are routed through its graph, which keeps
// the spatial index and links consistent and notifies observers.
// Descriptive fields (Title, Properties, Flags, colours) may be edited
// directly.
type Node struct {
	Type       string
	Title      string
	Properties map[string]any
	Flags      map[string]any
	Order      int
	Color      string
	BgColor    string

	id      NodeID
	pos     geom.Point
	size    geom.Size
	mode    Mode
	inputs  []*InputSlot
	outputs []*OutputSlot
	widgets []Widget
	graph   *Graph
}

// NewNode returns a detached node of the given type with default size.
func NewNode(typ string) *Node {
	return &Node{
		Type:       typ,
		Title:      typ,
		Properties: map[string]any{},
		Flags:      map[string]any{},
		size:       geom.Sz(NodeMinWidth, NodeSlotHeight+6),
	}
}

// ID returns the node id. It is zero until the node is added to a graph
// unless set with [Node.SetID].
func (n *Node) ID() NodeID { return n.id }

// SetID assigns an id to a detached node.
func (n *Node) SetID(id NodeID) error {
	if n.graph != nil {
		return errors.New(errors.ErrCodeInvalidOperation, "node %s: cannot change id while attached", n.id)
	}
	n.id = id
	return nil
}

// Graph returns the owning graph, or nil for a detached node.
func (n *Node) Graph() *Graph { return n.graph }

// Pos returns the top-left corner of the node body.
func (n *Node) Pos() geom.Point { return n.pos }

// Size returns the size of the node body.
func (n *Node) Size() geom.Size { return n.size }

// Mode returns the execution mode.
func (n *Node) Mode() Mode { return n.mode }

// Bounding returns the node's outline including the title bar.
func (n *Node) Bounding() geom.Rect {
	return geom.R(n.pos.X, n.pos.Y-NodeTitleHeight, n.size.W, n.size.H+NodeTitleHeight)
}

// SetPos moves the node.
func (n *Node) SetPos(p geom.Point) {
	if n.graph != nil {
		n.graph.SetNodePosition(n.id, p)
		return
	}
	n.pos = p
}

// SetSize resizes the node.
func (n *Node) SetSize(s geom.Size) {
	if n.graph != nil {
		n.graph.SetNodeSize(n.id, s)
		return
	}
	n.size = s
}

// SetMode changes the execution mode.
func (n *Node) SetMode(m Mode) {
	if n.graph != nil {
		n.graph.SetNodeMode(n.id, m)
		return
	}
	n.mode = m
}

// Inputs returns the input slots in order.
func (n *Node) Inputs() []*InputSlot { return slices.Clone(n.inputs) }

// Outputs returns the output slots in order.
func (n *Node) Outputs() []*OutputSlot { return slices.Clone(n.outputs) }

// Input returns input slot i, or nil if out of range.
func (n *Node) Input(i int) *InputSlot {
	if i < 0 || i >= len(n.inputs) {
		return nil
	}
	return n.inputs[i]
}

// Output returns output slot i, or nil if out of range.
func (n *Node) Output(i int) *OutputSlot {
	if i < 0 || i >= len(n.outputs) {
		return nil
	}
	return n.outputs[i]
}

// FindInput returns the index of the first input named name, or -1.
func (n *Node) FindInput(name string) int {
	return slices.IndexFunc(n.inputs, func(s *InputSlot) bool { return s.Name == name })
}

// FindOutput returns the index of the first output named name, or -1.
func (n *Node) FindOutput(name string) int {
	return slices.IndexFunc(n.outputs, func(s *OutputSlot) bool { return s.Name == name })
}

// AddInput appends an input slot and returns its index.
func (n *Node) AddInput(name, typ string) int {
	n.inputs = append(n.inputs, &InputSlot{Name: name, Type: typ})
	idx := len(n.inputs) - 1
	if n.graph != nil {
		n.graph.emit(Event{Kind: EventSlotAdded, Node: n.id, Dir: DirInput, Slot: idx})
	}
	return idx
}

// AddOutput appends an output slot and returns its index.
func (n *Node) AddOutput(name, typ string) int {
	n.outputs = append(n.outputs, &OutputSlot{Name: name, Type: typ})
	idx := len(n.outputs) - 1
	if n.graph != nil {
		n.graph.emit(Event{Kind: EventSlotAdded, Node: n.id, Dir: DirOutput, Slot: idx})
	}
	return idx
}

// RemoveInput removes input slot i, disconnecting its link.
func (n *Node) RemoveInput(i int) error {
	if n.graph != nil {
		return n.graph.RemoveInput(n.id, i)
	}
	if i < 0 || i >= len(n.inputs) {
		return errors.New(errors.ErrCodeSlotOutOfRange, "input %d out of range [0,%d)", i, len(n.inputs))
	}
	n.inputs = slices.Delete(n.inputs, i, i+1)
	return nil
}

// RemoveOutput removes output slot i, disconnecting its links.
func (n *Node) RemoveOutput(i int) error {
	if n.graph != nil {
		return n.graph.RemoveOutput(n.id, i)
	}
	if i < 0 || i >= len(n.outputs) {
		return errors.New(errors.ErrCodeSlotOutOfRange, "output %d out of range [0,%d)", i, len(n.outputs))
	}
	n.outputs = slices.Delete(n.outputs, i, i+1)
	return nil
}

// Widgets returns the widgets in order.
func (n *Node) Widgets() []Widget { return slices.Clone(n.widgets) }

// Widget returns the first widget named name, or nil.
func (n *Node) Widget(name string) Widget {
	for _, w := range n.widgets {
		if w.Name() == name {
			return w
		}
	}
	return nil
}

// AddWidget appends a widget.
func (n *Node) AddWidget(w Widget) {
	n.widgets = append(n.widgets, w)
}

// SetWidgetValue sets the value of the widget named name and notifies the
// graph's observers.
func (n *Node) SetWidgetValue(name string, v any) error {
	w := n.Widget(name)
	if w == nil {
		return errors.New(errors.ErrCodeNotFound, "node %s has no widget %q", n.id, name)
	}
	if err := w.SetValue(v); err != nil {
		return err
	}
	if n.graph != nil {
		n.graph.emit(Event{Kind: EventWidgetChanged, Node: n.id, Widget: name})
	}
	return nil
}

// ComputeSize returns the minimum body size for the node's slots and
// widgets.
func (n *Node) ComputeSize() geom.Size {
	rows := max(len(n.inputs), len(n.outputs), 1)
	h := float64(rows)*NodeSlotHeight + 6
	for _, w := range n.widgets {
		if w.Kind() != WidgetPreview {
			h += NodeWidgetHeight + 4
		}
	}
	return geom.Sz(NodeMinWidth, h)
}

// IsSubgraphNode reports whether the node instantiates a subgraph
// definition of its graph's root.
func (n *Node) IsSubgraphNode() bool {
	if n.graph == nil {
		return false
	}
	_, ok := n.graph.rootGraph().subgraphByType(n.Type)
	return ok
}

// clone copies the node's data without links or graph membership.
func (n *Node) clone() *Node {
	c := &Node{
		Type:       n.Type,
		Title:      n.Title,
		Properties: maps.Clone(n.Properties),
		Flags:      maps.Clone(n.Flags),
		Order:      n.Order,
		Color:      n.Color,
		BgColor:    n.BgColor,
		pos:        n.pos,
		size:       n.size,
		mode:       n.mode,
	}
	for _, s := range n.inputs {
		c.inputs = append(c.inputs, &InputSlot{Name: s.Name, Type: s.Type, Label: s.Label, Widget: s.Widget})
	}
	for _, s := range n.outputs {
		c.outputs = append(c.outputs, &OutputSlot{Name: s.Name, Type: s.Type, Label: s.Label})
	}
	for _, w := range n.widgets {
		c.widgets = append(c.widgets, cloneWidget(w))
	}
	return c
}
