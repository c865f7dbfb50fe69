package workflow

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
)

// SubgraphIO is one entry of a subgraph's external interface. Inside the
// definition, input i is output slot i of the -10 pseudo-node and output i
// is input slot i of the -20 pseudo-node.
type SubgraphIO struct {
	ID    uuid.UUID
	Name  string
	Type  string
	Label string

	linkIDs []LinkID
}

// LinkIDs returns the ids of the links attached to the entry inside the
// definition.
func (io *SubgraphIO) LinkIDs() []LinkID { return slices.Clone(io.linkIDs) }

// Subgraph is a reusable graph definition owned by a root graph. Nodes
// whose Type is the subgraph's id instantiate it; their slots mirror the
// subgraph's inputs and outputs.
//
// The embedded Graph holds the definition's contents. Its RemoveInput and
// RemoveOutput are shadowed by the interface-editing methods below.
type Subgraph struct {
	*Graph

	Name string

	inputs     []*SubgraphIO
	outputs    []*SubgraphIO
	inputNode  geom.Rect
	outputNode geom.Rect
}

var (
	defaultInputNode  = geom.R(-200, 0, 75, 100)
	defaultOutputNode = geom.R(400, 0, 75, 100)
)

func (g *Graph) newSubgraph(id uuid.UUID, name string) *Subgraph {
	s := &Subgraph{
		Name:       name,
		inputNode:  defaultInputNode,
		outputNode: defaultOutputNode,
	}
	opts := g.opts
	opts.ID = id
	s.Graph = newGraph(opts)
	s.Graph.root = g
	s.Graph.sub = s
	return s
}

// CreateSubgraph adds an empty subgraph definition to a root graph.
func (g *Graph) CreateSubgraph(name string) (*Subgraph, error) {
	if !g.IsRoot() {
		return nil, errors.New(errors.ErrCodeInvalidOperation, "subgraph definitions belong to the root graph")
	}
	s := g.newSubgraph(uuid.New(), name)
	g.subgraphs[s.id] = s
	g.emit(Event{Kind: EventSubgraphChanged})
	return s, nil
}

// Subgraph returns the definition with the given id.
func (g *Graph) Subgraph(id uuid.UUID) (*Subgraph, bool) {
	s, ok := g.rootGraph().subgraphs[id]
	return s, ok
}

// Subgraphs returns every definition sorted by id.
func (g *Graph) Subgraphs() []*Subgraph {
	root := g.rootGraph()
	out := make([]*Subgraph, 0, len(root.subgraphs))
	for _, s := range root.subgraphs {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Subgraph) int { return strings.Compare(a.id.String(), b.id.String()) })
	return out
}

// RemoveSubgraph deletes a definition. It fails with INVALID_OPERATION
// while any node still instantiates it.
func (g *Graph) RemoveSubgraph(id uuid.UUID) error {
	root := g.rootGraph()
	s, ok := root.subgraphs[id]
	if !ok {
		return errors.New(errors.ErrCodeSubgraphNotFound, "subgraph %s not found", id)
	}
	if n := len(s.instances()); n > 0 {
		return errors.New(errors.ErrCodeInvalidOperation, "subgraph %s is used by %d nodes", id, n)
	}
	delete(root.subgraphs, id)
	root.emit(Event{Kind: EventSubgraphChanged})
	return nil
}

func (g *Graph) subgraphByType(typ string) (*Subgraph, bool) {
	if len(g.subgraphs) == 0 {
		return nil, false
	}
	id, err := uuid.Parse(typ)
	if err != nil {
		return nil, false
	}
	s, ok := g.subgraphs[id]
	return s, ok
}

// Inputs returns the subgraph's inputs in order.
func (s *Subgraph) Inputs() []*SubgraphIO { return slices.Clone(s.inputs) }

// Outputs returns the subgraph's outputs in order.
func (s *Subgraph) Outputs() []*SubgraphIO { return slices.Clone(s.outputs) }

// InputNode returns the bounding box of the input pseudo-node.
func (s *Subgraph) InputNode() geom.Rect { return s.inputNode }

// OutputNode returns the bounding box of the output pseudo-node.
func (s *Subgraph) OutputNode() geom.Rect { return s.outputNode }

// SetIONodes positions the input and output pseudo-nodes.
func (s *Subgraph) SetIONodes(input, output geom.Rect) {
	s.inputNode, s.outputNode = input, output
	s.emit(Event{Kind: EventSubgraphChanged})
}

// AddInput appends an input to the interface and to every instance.
func (s *Subgraph) AddInput(name, typ string) *SubgraphIO {
	io := &SubgraphIO{ID: uuid.New(), Name: name, Type: typ}
	s.inputs = append(s.inputs, io)
	for _, n := range s.instances() {
		n.AddInput(name, typ)
	}
	s.changed()
	return io
}

// AddOutput appends an output to the interface and to every instance.
func (s *Subgraph) AddOutput(name, typ string) *SubgraphIO {
	io := &SubgraphIO{ID: uuid.New(), Name: name, Type: typ}
	s.outputs = append(s.outputs, io)
	for _, n := range s.instances() {
		n.AddOutput(name, typ)
	}
	s.changed()
	return io
}

// RemoveInput removes input i. Links from it inside the definition are
// removed, as is input slot i of every instance together with its link.
func (s *Subgraph) RemoveInput(i int) error {
	if i < 0 || i >= len(s.inputs) {
		return errors.New(errors.ErrCodeSlotOutOfRange, "subgraph input %d out of range [0,%d)", i, len(s.inputs))
	}
	err := s.Batch(func() error {
		for _, l := range slices.Clone(s.inputs[i].linkIDs) {
			s.disconnect(l, nil)
		}
		s.inputs = slices.Delete(s.inputs, i, i+1)
		for _, l := range s.links {
			if l.OriginID == SubgraphInputNodeID && l.OriginSlot > i {
				l.OriginSlot--
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, n := range s.instances() {
		if err := n.graph.RemoveInput(n.id, i); err != nil {
			return err
		}
	}
	s.changed()
	return nil
}

// RemoveOutput removes output i. The link into it inside the definition is
// removed, as is output slot i of every instance together with its links.
func (s *Subgraph) RemoveOutput(i int) error {
	if i < 0 || i >= len(s.outputs) {
		return errors.New(errors.ErrCodeSlotOutOfRange, "subgraph output %d out of range [0,%d)", i, len(s.outputs))
	}
	err := s.Batch(func() error {
		for _, l := range slices.Clone(s.outputs[i].linkIDs) {
			s.disconnect(l, nil)
		}
		s.outputs = slices.Delete(s.outputs, i, i+1)
		for _, l := range s.links {
			if l.TargetID == SubgraphOutputNodeID && l.TargetSlot > i {
				l.TargetSlot--
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, n := range s.instances() {
		if err := n.graph.RemoveOutput(n.id, i); err != nil {
			return err
		}
	}
	s.changed()
	return nil
}

// ConnectSubgraphInput links subgraph input to input slot of target inside
// the definition.
func (s *Subgraph) ConnectSubgraphInput(input int, target NodeID, slot int) (Link, error) {
	return s.Connect(SubgraphInputNodeID, input, target, slot)
}

// ConnectSubgraphOutput links output slot of origin to subgraph output
// inside the definition.
func (s *Subgraph) ConnectSubgraphOutput(origin NodeID, slot int, output int) (Link, error) {
	return s.Connect(origin, slot, SubgraphOutputNodeID, output)
}

// Instances returns the nodes that instantiate the subgraph, across the
// root graph and every definition.
func (s *Subgraph) Instances() []*Node { return s.instances() }

func (s *Subgraph) instances() []*Node {
	root := s.rootGraph()
	typ := s.id.String()
	out := root.FindNodesByType(typ)
	for _, other := range root.Subgraphs() {
		out = append(out, other.FindNodesByType(typ)...)
	}
	return out
}

func (s *Subgraph) changed() {
	s.emit(Event{Kind: EventSubgraphChanged})
	s.rootGraph().emit(Event{Kind: EventSubgraphChanged})
}

// instantiate returns a detached node whose slots mirror the interface.
func (s *Subgraph) instantiate() *Node {
	n := NewNode(s.id.String())
	if s.Name != "" {
		n.Title = s.Name
	}
	for _, io := range s.inputs {
		n.inputs = append(n.inputs, &InputSlot{Name: io.Name, Type: io.Type, Label: io.Label})
	}
	for _, io := range s.outputs {
		n.outputs = append(n.outputs, &OutputSlot{Name: io.Name, Type: io.Type, Label: io.Label})
	}
	n.size = n.ComputeSize()
	return n
}

// uses reports whether the definition contains an instance of other,
// directly or through nested subgraphs.
func (s *Subgraph) uses(other *Subgraph) bool {
	seen := make(map[*Subgraph]bool)
	var walk func(cur *Subgraph) bool
	walk = func(cur *Subgraph) bool {
		if seen[cur] {
			return false
		}
		seen[cur] = true
		for _, n := range cur.nodes {
			child, ok := cur.rootGraph().subgraphByType(n.Type)
			if !ok {
				continue
			}
			if child == other || walk(child) {
				return true
			}
		}
		return false
	}
	return walk(s)
}

// depth returns how many levels of subgraph nodes the definition nests,
// counting itself. Recursive definitions report a depth past the limit.
func (s *Subgraph) depth() int {
	memo := make(map[*Subgraph]int)
	onStack := make(map[*Subgraph]bool)
	var walk func(cur *Subgraph) int
	walk = func(cur *Subgraph) int {
		if d, ok := memo[cur]; ok {
			return d
		}
		if onStack[cur] {
			return MaxNestedSubgraphs + 1
		}
		onStack[cur] = true
		d := 0
		for _, n := range cur.nodes {
			if child, ok := cur.rootGraph().subgraphByType(n.Type); ok {
				d = max(d, walk(child))
			}
		}
		onStack[cur] = false
		memo[cur] = d + 1
		return d + 1
	}
	return walk(s)
}

// checkNesting rejects placing an instance of typ inside g when that would
// make a definition contain itself or nest deeper than MaxNestedSubgraphs.
func (g *Graph) checkNesting(typ string) error {
	if g.sub == nil {
		return nil
	}
	target, ok := g.rootGraph().subgraphByType(typ)
	if !ok {
		return nil
	}
	if target == g.sub || target.uses(g.sub) {
		return errors.New(errors.ErrCodeInvalidOperation, "subgraph %s cannot contain itself", g.sub.id)
	}
	if target.depth()+1 > MaxNestedSubgraphs {
		return errors.New(errors.ErrCodeInvalidOperation, "subgraphs nest deeper than %d", MaxNestedSubgraphs)
	}
	return nil
}
