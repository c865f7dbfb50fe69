package workflow

import (
	"encoding/json"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/registry"
	"github.com/matzehuels/nodegraph/pkg/spatial"
)

// =============================================================================
// Entities
// =============================================================================

// Link is a directed edge from an output slot to an input slot. Endpoints
// are ids; ParentID names the reroute nearest the input, or zero.
//
// Values returned by the graph are copies.
type Link struct {
	ID         LinkID
	Type       string
	OriginID   NodeID
	OriginSlot int
	TargetID   NodeID
	TargetSlot int
	ParentID   RerouteID
}

// Origin returns a reference to the link's output slot.
func (l Link) Origin() SlotRef { return Out(l.OriginID, l.OriginSlot) }

// Target returns a reference to the link's input slot.
func (l Link) Target() SlotRef { return In(l.TargetID, l.TargetSlot) }

// Reroute is a waypoint on one or more links. ParentID points towards the
// output side; a reroute with ParentID zero is the first hop after the
// output. Several links from the same output may share a reroute chain.
//
// Values returned by the graph are copies.
type Reroute struct {
	ID       RerouteID
	ParentID RerouteID
	Pos      geom.Point

	linkIDs map[LinkID]struct{}
}

// LinkIDs returns the ids of the links passing through the reroute,
// sorted.
func (r Reroute) LinkIDs() []LinkID {
	return slices.Sorted(maps.Keys(r.linkIDs))
}

// Bounds returns the reroute's hit area.
func (r Reroute) Bounds() geom.Rect {
	return geom.R(r.Pos.X-RerouteRadius, r.Pos.Y-RerouteRadius, 2*RerouteRadius, 2*RerouteRadius)
}

// Group is a titled rectangle used to organise nodes. Membership is not
// stored; see [Graph.GroupChildren].
type Group struct {
	ID       GroupID
	Title    string
	Color    string
	FontSize float64
	Flags    map[string]any

	bounding geom.Rect
}

// NewGroup returns a detached group.
func NewGroup(title string, bounding geom.Rect) *Group {
	return &Group{Title: title, FontSize: GroupFontSize, bounding: bounding}
}

// Bounding returns the group's rectangle.
func (gr *Group) Bounding() geom.Rect { return gr.bounding }

// State holds the id counters of a graph.
type State struct {
	LastNodeID    int64
	LastLinkID    int64
	LastGroupID   int64
	LastRerouteID int64
}

// =============================================================================
// Graph
// =============================================================================

// Options configures a Graph.
type Options struct {
	// Registry supplies node type definitions and slot type compatibility.
	// Nil means an empty, permissive registry.
	Registry *registry.Registry

	// Logger receives load warnings. Nil discards them.
	Logger *log.Logger

	// Index tunes the spatial indexes for nodes and reroutes.
	Index spatial.Options

	// ID fixes the graph id. A random UUID is used when zero.
	ID uuid.UUID
}

// Graph is the aggregate root of a workflow: it owns nodes, links,
// reroutes and groups, keeps their spatial indexes current and notifies
// observers after each mutation.
//
// Entities reference each other by id only. Removing a node removes every
// link touching it; removing a link removes reroutes left without links.
//
// Graph is not safe for concurrent use. Callers serialise access.
type Graph struct {
	id       uuid.UUID
	revision int
	reg      *registry.Registry
	logger   *log.Logger
	opts     Options

	nodes    map[NodeID]*Node
	links    map[LinkID]*Link
	reroutes map[RerouteID]*Reroute
	groups   map[GroupID]*Group
	state    State
	extra    map[string]json.RawMessage
	config   json.RawMessage
	floating []json.RawMessage

	nodeIndex    *spatial.QuadTree[NodeID]
	rerouteIndex *spatial.QuadTree[RerouteID]

	observers  []*subscription
	pending    []Event
	batchDepth int
	muted      int
	version    uint64

	// Root graphs own subgraph definitions; subgraphs point back at their
	// root and their own definition.
	subgraphs map[uuid.UUID]*Subgraph
	root      *Graph
	sub       *Subgraph
}

// New returns an empty root graph.
func New(opts Options) *Graph {
	g := newGraph(opts)
	g.subgraphs = make(map[uuid.UUID]*Subgraph)
	return g
}

func newGraph(opts Options) *Graph {
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Graph{
		id:           id,
		reg:          opts.Registry,
		logger:       opts.Logger,
		opts:         opts,
		nodes:        make(map[NodeID]*Node),
		links:        make(map[LinkID]*Link),
		reroutes:     make(map[RerouteID]*Reroute),
		groups:       make(map[GroupID]*Group),
		extra:        make(map[string]json.RawMessage),
		nodeIndex:    spatial.New[NodeID](opts.Index),
		rerouteIndex: spatial.New[RerouteID](opts.Index),
	}
}

// ID returns the graph's UUID.
func (g *Graph) ID() uuid.UUID { return g.id }

// Registry returns the graph's registry.
func (g *Graph) Registry() *registry.Registry { return g.reg }

// State returns the id counters.
func (g *Graph) State() State { return g.state }

// IsRoot reports whether g is a root graph rather than a subgraph.
func (g *Graph) IsRoot() bool { return g.sub == nil }

// Definition returns the subgraph whose contents g holds. It reports false
// for a root graph.
func (g *Graph) Definition() (*Subgraph, bool) { return g.sub, g.sub != nil }

func (g *Graph) rootGraph() *Graph {
	if g.root != nil {
		return g.root
	}
	return g
}

// =============================================================================
// Nodes
// =============================================================================

// CreateNode instantiates a detached node of the given type from the
// registry (or from a subgraph definition when typ is a subgraph id).
// Unknown types yield a bare node unless the registry is strict.
func (g *Graph) CreateNode(typ string) (*Node, error) {
	if sg, ok := g.rootGraph().subgraphByType(typ); ok {
		return sg.instantiate(), nil
	}
	def, ok := g.reg.Lookup(typ)
	if !ok {
		if g.reg.Strict() {
			return nil, errors.New(errors.ErrCodeNotFound, "unknown node type %q", typ)
		}
		return NewNode(typ), nil
	}
	return nodeFromDef(def)
}

func nodeFromDef(def *registry.NodeType) (*Node, error) {
	n := NewNode(def.Name)
	if def.Title != "" {
		n.Title = def.Title
	}
	for _, s := range def.Inputs {
		n.inputs = append(n.inputs, &InputSlot{Name: s.Name, Type: s.Type, Label: s.Label})
	}
	for _, s := range def.Outputs {
		n.outputs = append(n.outputs, &OutputSlot{Name: s.Name, Type: s.Type, Label: s.Label})
	}
	for _, wd := range def.Widgets {
		w, err := NewWidget(wd)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "node type %s", def.Name)
		}
		n.widgets = append(n.widgets, w)
	}
	n.size = n.ComputeSize()
	if def.Size != [2]float64{} {
		n.size = geom.Sz(def.Size[0], def.Size[1])
	}
	return n, nil
}

// AddNode attaches n to the graph and returns its id. A node without an id
// receives the next integer id. Adding a node whose id is taken fails with
// DUPLICATE_ID; adding a node owned by another graph fails with
// INVALID_OPERATION.
func (g *Graph) AddNode(n *Node) (NodeID, error) {
	if n == nil {
		return NodeID{}, errors.New(errors.ErrCodeInvalidInput, "node is nil")
	}
	if n.graph != nil {
		return NodeID{}, errors.New(errors.ErrCodeInvalidOperation, "node %s already belongs to a graph", n.id)
	}
	if n.id == SubgraphInputNodeID || n.id == SubgraphOutputNodeID {
		return NodeID{}, errors.New(errors.ErrCodeInvalidInput, "node id %s is reserved", n.id)
	}
	if err := g.checkNesting(n.Type); err != nil {
		return NodeID{}, err
	}
	if n.id.IsZero() {
		g.state.LastNodeID++
		n.id = IntID(g.state.LastNodeID)
		for g.nodes[n.id] != nil {
			g.state.LastNodeID++
			n.id = IntID(g.state.LastNodeID)
		}
	} else if _, ok := g.nodes[n.id]; ok {
		return NodeID{}, errors.New(errors.ErrCodeDuplicateID, "node %s already exists", n.id)
	} else if v, ok := n.id.Int(); ok && v > g.state.LastNodeID {
		g.state.LastNodeID = v
	}

	// Links of a detached node never refer to this graph.
	for _, in := range n.inputs {
		in.clearLink()
	}
	for _, out := range n.outputs {
		out.links = nil
	}
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	if n.Flags == nil {
		n.Flags = map[string]any{}
	}

	n.graph = g
	g.nodes[n.id] = n
	g.nodeIndex.Insert(n.id, n.Bounding())
	g.emit(Event{Kind: EventNodeAdded, Node: n.id})
	return n.id, nil
}

// RemoveNode detaches a node, removing every link that touches it. Unknown
// ids are ignored.
func (g *Graph) RemoveNode(id NodeID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	_ = g.Batch(func() error {
		for _, in := range n.inputs {
			if l, ok := in.Link(); ok {
				g.disconnect(l, nil)
			}
		}
		for _, out := range n.outputs {
			for _, l := range slices.Clone(out.links) {
				g.disconnect(l, nil)
			}
		}
		g.nodeIndex.Remove(id)
		delete(g.nodes, id)
		n.graph = nil
		g.emit(Event{Kind: EventNodeRemoved, Node: id})
		return nil
	})
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node sorted by id.
func (g *Graph) Nodes() []*Node {
	out := slices.Collect(maps.Values(g.nodes))
	slices.SortFunc(out, func(a, b *Node) int { return a.id.Compare(b.id) })
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// FindNodesByType returns the nodes of the given type sorted by id.
func (g *Graph) FindNodesByType(typ string) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// SetNodePosition moves a node and updates the spatial index.
func (g *Graph) SetNodePosition(id NodeID, p geom.Point) {
	n, ok := g.nodes[id]
	if !ok || n.pos == p {
		return
	}
	n.pos = p
	g.nodeIndex.Update(id, n.Bounding())
	g.emit(Event{Kind: EventNodeMoved, Node: id})
}

// SetNodeSize resizes a node and updates the spatial index.
func (g *Graph) SetNodeSize(id NodeID, s geom.Size) {
	n, ok := g.nodes[id]
	if !ok || n.size == s {
		return
	}
	n.size = s
	g.nodeIndex.Update(id, n.Bounding())
	g.emit(Event{Kind: EventNodeResized, Node: id})
}

// SetNodeMode changes a node's execution mode.
func (g *Graph) SetNodeMode(id NodeID, m Mode) {
	n, ok := g.nodes[id]
	if !ok || n.mode == m {
		return
	}
	old := n.mode
	n.mode = m
	g.emit(Event{Kind: EventModeChanged, Node: id, OldMode: old, NewMode: m})
}

// BringToFront raises a node above every other node for hit-testing.
func (g *Graph) BringToFront(id NodeID) {
	if g.nodeIndex.Raise(id) {
		g.emit(Event{Kind: EventNodeMoved, Node: id})
	}
}

// RemoveInput removes input slot i of a node. Its link is disconnected and
// links into later inputs are renumbered.
func (g *Graph) RemoveInput(id NodeID, i int) error {
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
	}
	if i < 0 || i >= len(n.inputs) {
		return errors.New(errors.ErrCodeSlotOutOfRange, "node %s input %d out of range [0,%d)", id, i, len(n.inputs))
	}
	return g.Batch(func() error {
		if l, ok := n.inputs[i].Link(); ok {
			g.disconnect(l, nil)
		}
		n.inputs = slices.Delete(n.inputs, i, i+1)
		for j := i; j < len(n.inputs); j++ {
			if l, ok := n.inputs[j].Link(); ok {
				g.links[l].TargetSlot = j
			}
		}
		g.emit(Event{Kind: EventSlotRemoved, Node: id, Dir: DirInput, Slot: i})
		return nil
	})
}

// RemoveOutput removes output slot i of a node. Its links are disconnected
// and links from later outputs are renumbered.
func (g *Graph) RemoveOutput(id NodeID, i int) error {
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
	}
	if i < 0 || i >= len(n.outputs) {
		return errors.New(errors.ErrCodeSlotOutOfRange, "node %s output %d out of range [0,%d)", id, i, len(n.outputs))
	}
	return g.Batch(func() error {
		for _, l := range slices.Clone(n.outputs[i].links) {
			g.disconnect(l, nil)
		}
		n.outputs = slices.Delete(n.outputs, i, i+1)
		for j := i; j < len(n.outputs); j++ {
			for _, l := range n.outputs[j].links {
				g.links[l].OriginSlot = j
			}
		}
		g.emit(Event{Kind: EventSlotRemoved, Node: id, Dir: DirOutput, Slot: i})
		return nil
	})
}

// =============================================================================
// Links and reroutes (read access)
// =============================================================================

// Link returns a copy of the link with the given id.
func (g *Graph) Link(id LinkID) (Link, bool) {
	l, ok := g.links[id]
	if !ok {
		return Link{}, false
	}
	return *l, true
}

// Links returns copies of every link sorted by id.
func (g *Graph) Links() []Link {
	out := make([]Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, *l)
	}
	slices.SortFunc(out, func(a, b Link) int { return cmpInt(a.ID, b.ID) })
	return out
}

// LinkCount returns the number of links.
func (g *Graph) LinkCount() int { return len(g.links) }

// InputLink returns the link connected to input i of a node.
func (g *Graph) InputLink(id NodeID, i int) (Link, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Link{}, false
	}
	in := n.Input(i)
	if in == nil {
		return Link{}, false
	}
	l, ok := in.Link()
	if !ok {
		return Link{}, false
	}
	return g.Link(l)
}

// Reroute returns a copy of the reroute with the given id.
func (g *Graph) Reroute(id RerouteID) (Reroute, bool) {
	r, ok := g.reroutes[id]
	if !ok {
		return Reroute{}, false
	}
	return *r, true
}

// Reroutes returns copies of every reroute sorted by id.
func (g *Graph) Reroutes() []Reroute {
	out := make([]Reroute, 0, len(g.reroutes))
	for _, r := range g.reroutes {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b Reroute) int { return cmpInt(a.ID, b.ID) })
	return out
}

// =============================================================================
// Groups
// =============================================================================

// AddGroup attaches a group and returns its id. A group without an id
// receives the next group id.
func (g *Graph) AddGroup(gr *Group) (GroupID, error) {
	if gr == nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "group is nil")
	}
	if gr.ID == 0 {
		g.state.LastGroupID++
		gr.ID = GroupID(g.state.LastGroupID)
	} else if _, ok := g.groups[gr.ID]; ok {
		return 0, errors.New(errors.ErrCodeDuplicateID, "group %d already exists", gr.ID)
	}
	if int64(gr.ID) > g.state.LastGroupID {
		g.state.LastGroupID = int64(gr.ID)
	}
	if gr.FontSize == 0 {
		gr.FontSize = GroupFontSize
	}
	g.groups[gr.ID] = gr
	g.emit(Event{Kind: EventGroupAdded, Group: gr.ID})
	return gr.ID, nil
}

// RemoveGroup removes a group. Its member nodes are untouched.
func (g *Graph) RemoveGroup(id GroupID) {
	if _, ok := g.groups[id]; !ok {
		return
	}
	delete(g.groups, id)
	g.emit(Event{Kind: EventGroupRemoved, Group: id})
}

// SetGroupBounding moves or resizes a group.
func (g *Graph) SetGroupBounding(id GroupID, r geom.Rect) error {
	gr, ok := g.groups[id]
	if !ok {
		return errors.New(errors.ErrCodeGroupNotFound, "group %d not found", id)
	}
	gr.bounding = r
	g.emit(Event{Kind: EventGroupChanged, Group: id})
	return nil
}

// Group returns the group with the given id.
func (g *Graph) Group(id GroupID) (*Group, bool) {
	gr, ok := g.groups[id]
	return gr, ok
}

// Groups returns every group sorted by id.
func (g *Graph) Groups() []*Group {
	out := slices.Collect(maps.Values(g.groups))
	slices.SortFunc(out, func(a, b *Group) int { return cmpInt(a.ID, b.ID) })
	return out
}

// GroupContents lists the entities inside a group.
type GroupContents struct {
	Nodes    []NodeID
	Reroutes []RerouteID
	Groups   []GroupID
}

// GroupChildren computes a group's members: nodes whose outline centre
// lies inside the group, reroutes whose position does, and groups nested
// entirely within it.
func (g *Graph) GroupChildren(id GroupID) (GroupContents, error) {
	gr, ok := g.groups[id]
	if !ok {
		return GroupContents{}, errors.New(errors.ErrCodeGroupNotFound, "group %d not found", id)
	}
	var c GroupContents
	for _, nid := range g.nodeIndex.QueryBounds(gr.bounding) {
		if gr.bounding.ContainsCentre(g.nodes[nid].Bounding()) {
			c.Nodes = append(c.Nodes, nid)
		}
	}
	for _, rid := range g.rerouteIndex.QueryBounds(gr.bounding) {
		if gr.bounding.Contains(g.reroutes[rid].Pos) {
			c.Reroutes = append(c.Reroutes, rid)
		}
	}
	for _, other := range g.Groups() {
		if other.ID != id && gr.bounding.ContainsRect(other.bounding) {
			c.Groups = append(c.Groups, other.ID)
		}
	}
	slices.SortFunc(c.Nodes, func(a, b NodeID) int { return a.Compare(b) })
	slices.Sort(c.Reroutes)
	return c, nil
}

// GroupAtPoint returns the top-most group containing p. Later groups draw
// above earlier ones.
func (g *Graph) GroupAtPoint(p geom.Point) (*Group, bool) {
	groups := g.Groups()
	for i := len(groups) - 1; i >= 0; i-- {
		if groups[i].bounding.Contains(p) {
			return groups[i], true
		}
	}
	return nil, false
}

// =============================================================================
// Spatial queries
// =============================================================================

// QueryNodesInBounds returns the nodes whose outline overlaps r, top-most
// first.
func (g *Graph) QueryNodesInBounds(r geom.Rect) []*Node {
	ids := g.nodeIndex.QueryBounds(r)
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// QueryNodeAtPoint returns the top-most node whose outline contains p.
func (g *Graph) QueryNodeAtPoint(p geom.Point) (*Node, bool) {
	ids := g.nodeIndex.QueryPoint(p)
	if len(ids) == 0 {
		return nil, false
	}
	return g.nodes[ids[0]], true
}

// QueryReroutesInBounds returns the reroutes whose hit area overlaps r,
// top-most first.
func (g *Graph) QueryReroutesInBounds(r geom.Rect) []Reroute {
	ids := g.rerouteIndex.QueryBounds(r)
	out := make([]Reroute, len(ids))
	for i, id := range ids {
		out[i] = *g.reroutes[id]
	}
	return out
}

// QueryRerouteAtPoint returns the top-most reroute whose hit area contains p.
func (g *Graph) QueryRerouteAtPoint(p geom.Point) (Reroute, bool) {
	ids := g.rerouteIndex.QueryPoint(p)
	if len(ids) == 0 {
		return Reroute{}, false
	}
	return *g.reroutes[ids[0]], true
}

// IndexStats reports the shape of the node index.
func (g *Graph) IndexStats() spatial.Stats { return g.nodeIndex.Stats() }

// IndexSnapshot returns the node index structure for debugging.
func (g *Graph) IndexSnapshot() spatial.Snapshot[NodeID] { return g.nodeIndex.Snapshot() }

// Bounds returns the union of every node outline, group and reroute, or
// the zero rectangle for an empty graph.
func (g *Graph) Bounds() geom.Rect {
	r := geom.Rect{W: -1, H: -1}
	for _, n := range g.nodes {
		r = r.Union(n.Bounding())
	}
	for _, gr := range g.groups {
		r = r.Union(gr.bounding)
	}
	for _, rr := range g.reroutes {
		r = r.Union(rr.Bounds())
	}
	if r.W < 0 {
		return geom.Rect{}
	}
	return r
}

// =============================================================================
// Extra and lifecycle
// =============================================================================

// Extra returns a copy of the opaque extra bag.
func (g *Graph) Extra() map[string]json.RawMessage { return maps.Clone(g.extra) }

// SetExtra stores v under key in the extra bag.
func (g *Graph) SetExtra(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "extra %s", key)
	}
	g.extra[key] = data
	return nil
}

// Clear removes every entity and resets the counters. Subgraph definitions
// of a root graph are removed too.
func (g *Graph) Clear() {
	for _, n := range g.nodes {
		n.graph = nil
	}
	clear(g.nodes)
	clear(g.links)
	clear(g.reroutes)
	clear(g.groups)
	clear(g.extra)
	g.config = nil
	g.floating = nil
	g.state = State{}
	g.nodeIndex.Clear()
	g.rerouteIndex.Clear()
	if g.subgraphs != nil {
		clear(g.subgraphs)
	}
	g.emit(Event{Kind: EventCleared})
}

func cmpInt[T ~int64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
