package workflow

import (
	"slices"

	"github.com/matzehuels/nodegraph/pkg/errors"
)

// outPort and inPort are resolved slot handles. They hide whether a slot
// belongs to a node or to the IO list of the enclosing subgraph, whose
// inputs act as outputs of the -10 pseudo-node and whose outputs act as
// inputs of the -20 pseudo-node.
type outPort struct {
	typ   string
	links *[]LinkID
}

type inPort struct {
	typ  string
	slot *InputSlot
	io   *SubgraphIO
}

func (p inPort) link() (LinkID, bool) {
	if p.slot != nil {
		return p.slot.Link()
	}
	if len(p.io.linkIDs) == 0 {
		return 0, false
	}
	return p.io.linkIDs[0], true
}

func (p inPort) setLink(id LinkID) {
	if p.slot != nil {
		p.slot.setLink(id)
		return
	}
	p.io.linkIDs = []LinkID{id}
}

func (p inPort) clearLink(id LinkID) {
	if p.slot != nil {
		if cur, ok := p.slot.Link(); ok && cur == id {
			p.slot.clearLink()
		}
		return
	}
	p.io.linkIDs = slices.DeleteFunc(p.io.linkIDs, func(l LinkID) bool { return l == id })
}

// hasEndpoint reports whether id names a node or, inside a subgraph, one of
// its IO pseudo-nodes.
func (g *Graph) hasEndpoint(id NodeID) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	return g.sub != nil && (id == SubgraphInputNodeID || id == SubgraphOutputNodeID)
}

func (g *Graph) outPort(id NodeID, i int) (outPort, error) {
	if g.sub != nil && id == SubgraphInputNodeID {
		if i < 0 || i >= len(g.sub.inputs) {
			return outPort{}, errors.New(errors.ErrCodeSlotOutOfRange, "subgraph input %d out of range [0,%d)", i, len(g.sub.inputs))
		}
		io := g.sub.inputs[i]
		return outPort{typ: io.Type, links: &io.linkIDs}, nil
	}
	n, ok := g.nodes[id]
	if !ok {
		return outPort{}, errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
	}
	out := n.Output(i)
	if out == nil {
		return outPort{}, errors.New(errors.ErrCodeSlotOutOfRange, "node %s output %d out of range [0,%d)", id, i, len(n.outputs))
	}
	return outPort{typ: out.Type, links: &out.links}, nil
}

func (g *Graph) inPort(id NodeID, i int) (inPort, error) {
	if g.sub != nil && id == SubgraphOutputNodeID {
		if i < 0 || i >= len(g.sub.outputs) {
			return inPort{}, errors.New(errors.ErrCodeSlotOutOfRange, "subgraph output %d out of range [0,%d)", i, len(g.sub.outputs))
		}
		io := g.sub.outputs[i]
		return inPort{typ: io.Type, io: io}, nil
	}
	n, ok := g.nodes[id]
	if !ok {
		return inPort{}, errors.New(errors.ErrCodeNodeNotFound, "node %s not found", id)
	}
	in := n.Input(i)
	if in == nil {
		return inPort{}, errors.New(errors.ErrCodeSlotOutOfRange, "node %s input %d out of range [0,%d)", id, i, len(n.inputs))
	}
	return inPort{typ: in.Type, slot: in}, nil
}

// =============================================================================
// Connect
// =============================================================================

// Connect links output originSlot of originNode to input targetSlot of
// targetNode and returns a copy of the new link.
//
// Checks run in order: both nodes exist (NODE_NOT_FOUND), both slot
// indices are in range (SLOT_OUT_OF_RANGE), and the slot types are
// compatible under the graph's registry (TYPE_MISMATCH). If the input is
// already connected, its link is removed first; observers see the removal
// and the new link in one change set.
//
// Nodes may feed their own inputs. Cycles are not rejected.
func (g *Graph) Connect(originNode NodeID, originSlot int, targetNode NodeID, targetSlot int) (Link, error) {
	return g.connect(originNode, originSlot, targetNode, targetSlot, 0)
}

// ConnectVia is Connect with the new link routed through parent, the
// reroute nearest the input. Every link already passing through parent
// must start at the same output.
func (g *Graph) ConnectVia(originNode NodeID, originSlot int, targetNode NodeID, targetSlot int, parent RerouteID) (Link, error) {
	return g.connect(originNode, originSlot, targetNode, targetSlot, parent)
}

// ConnectSlots connects two slot references given in either order. One must
// be an output and the other an input.
func (g *Graph) ConnectSlots(a, b SlotRef) (Link, error) {
	if a == b {
		return Link{}, errors.New(errors.ErrCodeSelfLink, "cannot connect %s %d of node %s to itself", a.Dir, a.Index, a.Node)
	}
	for _, r := range []SlotRef{a, b} {
		if r.Dir != DirInput && r.Dir != DirOutput {
			return Link{}, errors.New(errors.ErrCodeInvalidInput, "slot %d of node %s has no direction", r.Index, r.Node)
		}
	}
	if a.Dir == b.Dir {
		return Link{}, errors.New(errors.ErrCodeInvalidInput, "cannot connect two %ss", a.Dir)
	}
	if a.Dir == DirInput {
		a, b = b, a
	}
	return g.Connect(a.Node, a.Index, b.Node, b.Index)
}

// Connect links output slot of n to input targetSlot of target. Both nodes
// must belong to the same graph.
func (n *Node) Connect(slot int, target *Node, targetSlot int) (Link, error) {
	if n.graph == nil {
		return Link{}, errors.New(errors.ErrCodeNotAttached, "node %s is not in a graph", n.id)
	}
	if target == nil || target.graph != n.graph {
		return Link{}, errors.New(errors.ErrCodeInvalidOperation, "target node is not in the same graph as %s", n.id)
	}
	return n.graph.Connect(n.id, slot, target.id, targetSlot)
}

func (g *Graph) connect(originNode NodeID, originSlot int, targetNode NodeID, targetSlot int, parent RerouteID) (Link, error) {
	if !g.hasEndpoint(originNode) {
		return Link{}, errors.New(errors.ErrCodeNodeNotFound, "origin node %s not found", originNode)
	}
	if !g.hasEndpoint(targetNode) {
		return Link{}, errors.New(errors.ErrCodeNodeNotFound, "target node %s not found", targetNode)
	}
	out, err := g.outPort(originNode, originSlot)
	if err != nil {
		return Link{}, err
	}
	in, err := g.inPort(targetNode, targetSlot)
	if err != nil {
		return Link{}, err
	}
	if !g.reg.Compatible(out.typ, in.typ) {
		return Link{}, errors.New(errors.ErrCodeTypeMismatch, "cannot connect %s to %s", out.typ, in.typ)
	}

	var chain []RerouteID
	if parent != 0 {
		if chain, err = g.chainFrom(parent); err != nil {
			return Link{}, err
		}
		for _, lid := range g.reroutes[parent].LinkIDs() {
			l := g.links[lid]
			if l.OriginID != originNode || l.OriginSlot != originSlot {
				return Link{}, errors.New(errors.ErrCodeInvalidLink, "reroute %d carries links from another output", parent)
			}
		}
	}

	typ := out.typ
	if isWildcard(typ) {
		typ = in.typ
	}

	var created Link
	err = g.Batch(func() error {
		if old, ok := in.link(); ok {
			keep := make(map[RerouteID]bool, len(chain))
			for _, r := range chain {
				keep[r] = true
			}
			g.disconnect(old, keep)
		}
		id := g.nextLinkID()
		l := &Link{
			ID:         id,
			Type:       typ,
			OriginID:   originNode,
			OriginSlot: originSlot,
			TargetID:   targetNode,
			TargetSlot: targetSlot,
			ParentID:   parent,
		}
		g.links[id] = l
		*out.links = append(*out.links, id)
		in.setLink(id)
		for _, r := range chain {
			g.reroutes[r].linkIDs[id] = struct{}{}
		}
		g.emit(Event{Kind: EventLinkAdded, Link: id, Node: targetNode, Dir: DirInput, Slot: targetSlot})
		created = *l
		return nil
	})
	return created, err
}

func (g *Graph) nextLinkID() LinkID {
	for {
		g.state.LastLinkID++
		id := LinkID(g.state.LastLinkID)
		if _, taken := g.links[id]; !taken {
			return id
		}
	}
}

func isWildcard(t string) bool { return t == "" || t == "*" }

// =============================================================================
// Disconnect
// =============================================================================

// Disconnect removes a link. Reroutes on its path that no longer carry any
// link are removed with it.
func (g *Graph) Disconnect(id LinkID) error {
	if _, ok := g.links[id]; !ok {
		return errors.New(errors.ErrCodeLinkNotFound, "link %d not found", id)
	}
	_ = g.Batch(func() error {
		g.disconnect(id, nil)
		return nil
	})
	return nil
}

// DisconnectInput removes the link into input slot of a node, if any.
func (g *Graph) DisconnectInput(node NodeID, slot int) error {
	in, err := g.inPort(node, slot)
	if err != nil {
		return err
	}
	if l, ok := in.link(); ok {
		return g.Disconnect(l)
	}
	return nil
}

// DisconnectOutput removes every link leaving output slot of a node.
func (g *Graph) DisconnectOutput(node NodeID, slot int) error {
	out, err := g.outPort(node, slot)
	if err != nil {
		return err
	}
	return g.Batch(func() error {
		for _, l := range slices.Clone(*out.links) {
			g.disconnect(l, nil)
		}
		return nil
	})
}

// disconnect removes link id from both endpoints and from every reroute on
// its chain. Reroutes left empty are dropped unless listed in keep.
func (g *Graph) disconnect(id LinkID, keep map[RerouteID]bool) {
	l, ok := g.links[id]
	if !ok {
		return
	}
	if out, err := g.outPort(l.OriginID, l.OriginSlot); err == nil {
		*out.links = slices.DeleteFunc(*out.links, func(x LinkID) bool { return x == id })
	}
	if in, err := g.inPort(l.TargetID, l.TargetSlot); err == nil {
		in.clearLink(id)
	}
	// A broken chain still yields the reroutes walked before the break.
	chain, _ := g.chainFrom(l.ParentID)
	delete(g.links, id)
	g.emit(Event{Kind: EventLinkRemoved, Link: id, Node: l.TargetID, Dir: DirInput, Slot: l.TargetSlot})

	for _, rid := range chain {
		r := g.reroutes[rid]
		delete(r.linkIDs, id)
		if len(r.linkIDs) == 0 && !keep[rid] {
			g.dropReroute(rid)
		}
	}
}

// chainFrom walks parent pointers from start towards the output and returns
// the reroutes visited, nearest the input first.
func (g *Graph) chainFrom(start RerouteID) ([]RerouteID, error) {
	var chain []RerouteID
	seen := make(map[RerouteID]bool)
	for id := start; id != 0; {
		r, ok := g.reroutes[id]
		if !ok {
			return chain, errors.New(errors.ErrCodeRerouteNotFound, "reroute %d not found", id)
		}
		if seen[id] {
			return chain, errors.New(errors.ErrCodeInvalidLink, "reroute %d is part of a loop", id)
		}
		seen[id] = true
		chain = append(chain, id)
		id = r.ParentID
	}
	return chain, nil
}
