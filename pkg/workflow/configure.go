package workflow

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/schema"
)

// LoadReport summarises what Configure accepted and what it dropped.
// Dropped entities are also logged at warn level.
type LoadReport struct {
	Nodes     int
	Links     int
	Groups    int
	Reroutes  int
	Subgraphs int

	// FloatingLinks counts links with one open end. They are kept
	// verbatim but take no part in the graph.
	FloatingLinks int

	DroppedNodes    []NodeID
	DroppedLinks    []LinkID
	DroppedReroutes []RerouteID
	Warnings        []string
}

// Clean reports whether the document loaded without warnings.
func (r *LoadReport) Clean() bool { return len(r.Warnings) == 0 }

// graphData is the version-independent content of a graph or subgraph
// document.
type graphData struct {
	nodes      []schema.Node
	links      []schema.Link
	groups     []schema.Group
	reroutes   []schema.Reroute
	extra      map[string]json.RawMessage
	floating   []json.RawMessage
	state      State
	extensions map[LinkID]RerouteID
}

// Configure replaces the graph's contents with the document data.
//
// Loading is tolerant. Nodes with missing, reserved or duplicate ids,
// links whose endpoints or slots do not exist, second links into an
// occupied input, and reroutes that end up carrying no link are dropped
// with a warning. Unknown node types are kept with raw widgets unless the
// registry is strict, in which case they are dropped. Reroute parent loops
// are broken. Only an unsupported version or a nil document is an error.
//
// Observers receive a single EventConfigured.
func (g *Graph) Configure(data *schema.Graph) (*LoadReport, error) {
	if data == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document is nil")
	}
	if !g.IsRoot() {
		return nil, errors.New(errors.ErrCodeInvalidOperation, "configure the root graph instead of a subgraph")
	}
	switch data.Version {
	case 0, schema.Version, schema.ObjectVersion:
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedVersion, "unsupported document version %v", data.Version)
	}

	r := &LoadReport{}
	g.silently(func() {
		g.Clear()
		if data.ID != "" {
			if id, err := uuid.Parse(data.ID); err == nil {
				g.id = id
			} else {
				g.warn(r, "invalid graph id", "id", data.ID)
			}
		}
		g.revision = data.Revision

		g.config = slices.Clone(data.Config)
		gd := graphData{
			nodes:    data.Nodes,
			links:    data.Links,
			floating: data.FloatingLinks,
			groups:   data.Groups,
			reroutes: data.Reroutes,
			state: State{
				LastNodeID: data.LastNodeID,
				LastLinkID: data.LastLinkID,
			},
		}
		if st := data.State; st != nil {
			gd.state.LastNodeID = max(gd.state.LastNodeID, st.LastNodeID)
			gd.state.LastLinkID = max(gd.state.LastLinkID, st.LastLinkID)
			gd.state.LastGroupID = st.LastGroupID
			gd.state.LastRerouteID = st.LastRerouteID
		}
		gd.extra, gd.extensions, gd.reroutes = g.splitExtra(r, data.Extra, gd.reroutes)

		if data.Definitions != nil {
			g.configureDefinitions(r, data.Definitions.Subgraphs)
		}
		g.configureData(r, gd)
	})
	g.emit(Event{Kind: EventConfigured})
	return r, nil
}

// splitExtra separates the keys the loader interprets from the opaque
// remainder. Legacy reroutes from extra are merged behind top-level ones.
func (g *Graph) splitExtra(r *LoadReport, extra map[string]json.RawMessage, reroutes []schema.Reroute) (map[string]json.RawMessage, map[LinkID]RerouteID, []schema.Reroute) {
	rest := make(map[string]json.RawMessage, len(extra))
	ext := make(map[LinkID]RerouteID)
	for k, v := range extra {
		switch k {
		case schema.ExtraLinkExtensions:
			var list []schema.LinkExtension
			if err := json.Unmarshal(v, &list); err != nil {
				g.warn(r, "ignoring malformed link extensions", "error", err)
				continue
			}
			for _, e := range list {
				ext[e.ID] = e.ParentID
			}
		case schema.ExtraReroutes:
			var legacy []schema.Reroute
			if err := json.Unmarshal(v, &legacy); err != nil {
				g.warn(r, "ignoring malformed legacy reroutes", "error", err)
				continue
			}
			known := make(map[RerouteID]bool, len(reroutes))
			for _, x := range reroutes {
				known[x.ID] = true
			}
			for _, lr := range legacy {
				if !known[lr.ID] {
					known[lr.ID] = true
					reroutes = append(reroutes, lr)
				}
			}
		default:
			rest[k] = v
		}
	}
	return rest, ext, reroutes
}

// configureDefinitions creates every definition first so that nodes may
// reference definitions listed after their own, then loads contents.
func (g *Graph) configureDefinitions(r *LoadReport, defs []schema.Subgraph) {
	var loaded []*Subgraph
	var data []schema.Subgraph
	for _, d := range defs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			g.warn(r, "dropping subgraph with invalid id", "id", d.ID)
			continue
		}
		if _, dup := g.subgraphs[id]; dup {
			g.warn(r, "dropping duplicate subgraph", "id", d.ID)
			continue
		}
		s := g.newSubgraph(id, d.Name)
		s.revision = d.Revision
		if !d.InputNode.Bounding.Empty() {
			s.inputNode = d.InputNode.Bounding
		}
		if !d.OutputNode.Bounding.Empty() {
			s.outputNode = d.OutputNode.Bounding
		}
		s.inputs = configureIO(d.Inputs)
		s.outputs = configureIO(d.Outputs)
		g.subgraphs[id] = s
		loaded = append(loaded, s)
		data = append(data, d)
	}
	for i, s := range loaded {
		d := data[i]
		gd := graphData{
			nodes:    d.Nodes,
			floating: d.FloatingLinks,
			groups:   d.Groups,
			reroutes: d.Reroutes,
			state: State{
				LastNodeID:    d.State.LastNodeID,
				LastLinkID:    d.State.LastLinkID,
				LastGroupID:   d.State.LastGroupID,
				LastRerouteID: d.State.LastRerouteID,
			},
		}
		for _, l := range d.Links {
			gd.links = append(gd.links, schema.Link(l))
		}
		gd.extra, gd.extensions, gd.reroutes = s.splitExtra(r, d.Extra, gd.reroutes)
		s.silently(func() { s.configureData(r, gd) })
		r.Subgraphs++
	}

	// Definitions are complete now, so recursion and depth can be judged.
	for _, s := range loaded {
		for _, n := range s.Nodes() {
			child, ok := g.subgraphByType(n.Type)
			if !ok {
				continue
			}
			if child == s || child.uses(s) || child.depth()+1 > MaxNestedSubgraphs {
				g.warn(r, "dropping recursive or too deeply nested subgraph node", "subgraph", s.id, "node", n.id)
				s.silently(func() { s.RemoveNode(n.id) })
				r.DroppedNodes = append(r.DroppedNodes, n.id)
				r.Nodes--
			}
		}
	}
}

func configureIO(list []schema.SubgraphIO) []*SubgraphIO {
	out := make([]*SubgraphIO, 0, len(list))
	for _, d := range list {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			id = uuid.New()
		}
		out = append(out, &SubgraphIO{ID: id, Name: d.Name, Type: string(d.Type), Label: d.Label})
	}
	return out
}

// configureData loads nodes, groups and reroutes, then resolves links
// against them and repairs reroute chains.
func (g *Graph) configureData(r *LoadReport, d graphData) {
	g.extra = d.extra
	if len(d.floating) > 0 {
		g.floating = slices.Clone(d.floating)
		r.FloatingLinks += len(d.floating)
		g.logger.Debug("keeping floating links verbatim", "count", len(d.floating))
	}

	for _, sn := range d.nodes {
		g.configureNode(r, sn)
	}
	for _, sg := range d.groups {
		gr := &Group{ID: sg.ID, Title: sg.Title, Color: sg.Color, FontSize: sg.FontSize, Flags: sg.Flags, bounding: sg.Bounding}
		if _, err := g.AddGroup(gr); err != nil {
			g.warn(r, "dropping group", "group", sg.ID, "reason", errors.UserMessage(err))
			continue
		}
		r.Groups++
	}
	declared := make(map[RerouteID][]LinkID)
	for _, sr := range d.reroutes {
		if sr.ID <= 0 {
			g.warn(r, "dropping reroute without id")
			continue
		}
		if _, dup := g.reroutes[sr.ID]; dup {
			g.warn(r, "dropping duplicate reroute", "reroute", sr.ID)
			r.DroppedReroutes = append(r.DroppedReroutes, sr.ID)
			continue
		}
		rr := &Reroute{ID: sr.ID, ParentID: sr.ParentID, Pos: sr.Pos, linkIDs: make(map[LinkID]struct{})}
		g.reroutes[rr.ID] = rr
		g.rerouteIndex.Insert(rr.ID, rr.Bounds())
		declared[rr.ID] = sr.LinkIDs
	}

	g.configureLinks(r, d)
	g.inferLinkParents(declared)
	g.repairReroutes(r)

	// Counters never fall below an id in use.
	g.state.LastNodeID = max(g.state.LastNodeID, d.state.LastNodeID)
	g.state.LastLinkID = max(g.state.LastLinkID, d.state.LastLinkID)
	g.state.LastGroupID = max(g.state.LastGroupID, d.state.LastGroupID)
	g.state.LastRerouteID = max(g.state.LastRerouteID, d.state.LastRerouteID)
	for id := range g.links {
		g.state.LastLinkID = max(g.state.LastLinkID, int64(id))
	}
	for id := range g.reroutes {
		g.state.LastRerouteID = max(g.state.LastRerouteID, int64(id))
	}
}

func (g *Graph) configureNode(r *LoadReport, sn schema.Node) {
	drop := func(reason string) {
		g.warn(r, "dropping node", "node", sn.ID, "type", sn.Type, "reason", reason)
		r.DroppedNodes = append(r.DroppedNodes, sn.ID)
	}
	if sn.ID.IsZero() {
		drop("missing id")
		return
	}

	var n *Node
	if s, ok := g.rootGraph().subgraphByType(sn.Type); ok {
		n = s.instantiate()
	} else if def, ok := g.reg.Lookup(sn.Type); ok {
		var err error
		if n, err = nodeFromDef(def); err != nil {
			drop(errors.UserMessage(err))
			return
		}
	} else if g.reg.Strict() {
		drop("unknown node type")
		return
	} else {
		g.logger.Debug("keeping node of unknown type", "node", sn.ID, "type", sn.Type)
		n = NewNode(sn.Type)
	}

	if sn.Title != nil {
		n.Title = *sn.Title
	}
	n.pos = sn.Pos
	n.size = sn.Size
	n.mode = Mode(sn.Mode)
	n.Order = sn.Order
	n.Color = sn.Color
	n.BgColor = sn.BgColor
	if sn.Flags != nil {
		n.Flags = sn.Flags
	}
	if sn.Properties != nil {
		n.Properties = sn.Properties
	}
	if sn.Inputs != nil {
		n.inputs = n.inputs[:0]
		for _, in := range sn.Inputs {
			slot := &InputSlot{Name: in.Name, Type: string(in.Type), Label: in.Label}
			if in.Widget != nil {
				slot.Widget = in.Widget.Name
			}
			n.inputs = append(n.inputs, slot)
		}
	}
	if sn.Outputs != nil {
		n.outputs = n.outputs[:0]
		for _, out := range sn.Outputs {
			n.outputs = append(n.outputs, &OutputSlot{Name: out.Name, Type: string(out.Type), Label: out.Label})
		}
	}
	restoreWidgets(n, sn.WidgetsValues)

	n.id = sn.ID
	if _, err := g.AddNode(n); err != nil {
		drop(errors.UserMessage(err))
		return
	}
	r.Nodes++
}

// restoreWidgets assigns serialized values to the node's persisted widgets
// in order. A value that does not fit its widget replaces the widget with a
// raw one of the same name; surplus values become raw widgets named by
// position.
func restoreWidgets(n *Node, values []json.RawMessage) {
	var slots []int
	for i, w := range n.widgets {
		if w.Serializes() {
			slots = append(slots, i)
		}
	}
	for k, v := range values {
		if k >= len(slots) {
			n.widgets = append(n.widgets, NewRawWidget(strconv.Itoa(k), v))
			continue
		}
		w := n.widgets[slots[k]]
		if err := w.UnmarshalValue(v); err != nil {
			n.widgets[slots[k]] = NewRawWidget(w.Name(), v)
		}
	}
}

// configureLinks resolves links in id order. Links an input declares are
// resolved before the rest so that the declared link wins a contested
// input.
func (g *Graph) configureLinks(r *LoadReport, d graphData) {
	declaredBy := make(map[LinkID]bool)
	for _, sn := range d.nodes {
		for _, in := range sn.Inputs {
			if in.Link != nil {
				declaredBy[*in.Link] = true
			}
		}
	}
	links := slices.Clone(d.links)
	slices.SortStableFunc(links, func(a, b schema.Link) int {
		if declaredBy[a.ID] != declaredBy[b.ID] {
			if declaredBy[a.ID] {
				return -1
			}
			return 1
		}
		return cmpInt(a.ID, b.ID)
	})

	for _, sl := range links {
		drop := func(reason string) {
			g.warn(r, "dropping link", "link", sl.ID, "reason", reason)
			r.DroppedLinks = append(r.DroppedLinks, sl.ID)
		}
		if sl.ID <= 0 {
			drop("missing id")
			continue
		}
		if _, dup := g.links[sl.ID]; dup {
			drop("duplicate id")
			continue
		}
		if !g.hasEndpoint(sl.OriginID) {
			drop(fmt.Sprintf("origin node %s not found", sl.OriginID))
			continue
		}
		if !g.hasEndpoint(sl.TargetID) {
			drop(fmt.Sprintf("target node %s not found", sl.TargetID))
			continue
		}
		out, err := g.outPort(sl.OriginID, sl.OriginSlot)
		if err != nil {
			drop(errors.UserMessage(err))
			continue
		}
		in, err := g.inPort(sl.TargetID, sl.TargetSlot)
		if err != nil {
			drop(errors.UserMessage(err))
			continue
		}
		if _, busy := in.link(); busy {
			drop("input already connected")
			continue
		}

		parent := sl.ParentID
		if parent == 0 {
			parent = d.extensions[sl.ID]
		}
		if _, ok := g.reroutes[parent]; parent != 0 && !ok {
			g.warn(r, "link parent reroute not found", "link", sl.ID, "reroute", parent)
			parent = 0
		}

		l := &Link{
			ID:         sl.ID,
			Type:       string(sl.Type),
			OriginID:   sl.OriginID,
			OriginSlot: sl.OriginSlot,
			TargetID:   sl.TargetID,
			TargetSlot: sl.TargetSlot,
			ParentID:   parent,
		}
		g.links[l.ID] = l
		*out.links = append(*out.links, l.ID)
		in.setLink(l.ID)
		r.Links++
	}

	for _, n := range g.nodes {
		for _, out := range n.outputs {
			slices.Sort(out.links)
		}
	}
	if g.sub != nil {
		for _, io := range g.sub.inputs {
			slices.Sort(io.linkIDs)
		}
	}
}

// inferLinkParents recovers the parent of links that carry none from the
// link lists of older documents: the parent is the deepest reroute that
// lists the link.
func (g *Graph) inferLinkParents(declared map[RerouteID][]LinkID) {
	listing := make(map[LinkID][]RerouteID)
	for rid, ids := range declared {
		for _, id := range ids {
			listing[id] = append(listing[id], rid)
		}
	}
	for id, rids := range listing {
		l, ok := g.links[id]
		if !ok || l.ParentID != 0 {
			continue
		}
		parents := make(map[RerouteID]bool, len(rids))
		for _, o := range rids {
			if p := g.reroutes[o].ParentID; p != o {
				parents[p] = true
			}
		}
		slices.Sort(rids)
		for _, rid := range rids {
			if !parents[rid] {
				l.ParentID = rid
				break
			}
		}
	}
}

// repairReroutes breaks parent loops, recomputes link membership from the
// links' chains and drops reroutes that carry no link.
func (g *Graph) repairReroutes(r *LoadReport) {
	ids := make([]RerouteID, 0, len(g.reroutes))
	for id := range g.reroutes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		rr := g.reroutes[id]
		if _, ok := g.reroutes[rr.ParentID]; rr.ParentID != 0 && !ok {
			g.warn(r, "reroute parent not found", "reroute", id, "parent", rr.ParentID)
			rr.ParentID = 0
		}
	}
	// Each reroute is walked at most once: a walk stops at the first
	// reroute an earlier walk finished.
	const (
		onPath = 1
		done   = 2
	)
	state := make(map[RerouteID]int, len(ids))
	var path []RerouteID
	for _, id := range ids {
		path = path[:0]
		for cur := g.reroutes[id]; cur != nil && state[cur.ID] == 0; cur = g.reroutes[cur.ParentID] {
			state[cur.ID] = onPath
			path = append(path, cur.ID)
			if cur.ParentID != 0 && state[cur.ParentID] == onPath {
				g.warn(r, "breaking reroute loop", "reroute", cur.ID, "parent", cur.ParentID)
				cur.ParentID = 0
				break
			}
		}
		for _, p := range path {
			state[p] = done
		}
	}

	for _, l := range g.links {
		chain, _ := g.chainFrom(l.ParentID)
		for _, rid := range chain {
			g.reroutes[rid].linkIDs[l.ID] = struct{}{}
		}
	}

	orphans := make(map[RerouteID]bool)
	for _, id := range ids {
		if len(g.reroutes[id].linkIDs) == 0 {
			orphans[id] = true
		}
	}
	g.dropOrphans(r, ids, orphans)
	r.Reroutes += len(g.reroutes)
}

// dropOrphans removes the given reroutes in one pass. Every link that
// passes through a reroute also passes through its ancestors, so orphans
// only parent other orphans; surviving children are still re-parented past
// them for safety.
func (g *Graph) dropOrphans(r *LoadReport, ids []RerouteID, orphans map[RerouteID]bool) {
	if len(orphans) == 0 {
		return
	}
	resolved := make(map[RerouteID]RerouteID, len(orphans))
	var walk []RerouteID
	survivor := func(id RerouteID) RerouteID {
		walk = walk[:0]
		for orphans[id] {
			if p, ok := resolved[id]; ok {
				id = p
				break
			}
			walk = append(walk, id)
			id = g.reroutes[id].ParentID
		}
		for _, w := range walk {
			resolved[w] = id
		}
		return id
	}
	for _, id := range ids {
		if rr := g.reroutes[id]; !orphans[id] && orphans[rr.ParentID] {
			rr.ParentID = survivor(rr.ParentID)
		}
	}
	for _, l := range g.links {
		if orphans[l.ParentID] {
			l.ParentID = survivor(l.ParentID)
		}
	}
	for _, id := range ids {
		if !orphans[id] {
			continue
		}
		g.warn(r, "dropping reroute without links", "reroute", id)
		r.DroppedReroutes = append(r.DroppedReroutes, id)
		delete(g.reroutes, id)
		g.rerouteIndex.Remove(id)
	}
}

// warn logs a load problem and records it in the report.
func (g *Graph) warn(r *LoadReport, msg string, kv ...any) {
	g.logger.Warn(msg, kv...)
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	r.Warnings = append(r.Warnings, b.String())
}
