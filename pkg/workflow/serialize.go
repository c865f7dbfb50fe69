package workflow

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/nodegraph/pkg/schema"
)

// Serialize flattens the graph into its canonical document. Entities are
// sorted by id, link parents are carried in extra.linkExtensions, and the
// subgraph definitions used by any node are included.
//
// Serialize is deterministic: configuring a graph from the result and
// serializing again yields an identical document.
func (g *Graph) Serialize() *schema.Graph {
	links, ext := g.serializeLinks()
	extra := g.serializeExtra()
	if len(ext) > 0 {
		data, _ := json.Marshal(ext)
		extra[schema.ExtraLinkExtensions] = data
	}
	doc := &schema.Graph{
		ID:            g.id.String(),
		Revision:      g.revision,
		LastNodeID:    g.state.LastNodeID,
		LastLinkID:    g.state.LastLinkID,
		Nodes:         g.serializeNodes(),
		Links:         links,
		FloatingLinks: slices.Clone(g.floating),
		Groups:        g.serializeGroups(),
		Reroutes:      g.serializeReroutes(),
		State:         g.serializeState(),
		Config:        slices.Clone(g.config),
		Extra:         extra,
		Version:       schema.Version,
	}
	if used := g.usedSubgraphs(); len(used) > 0 {
		doc.Definitions = &schema.Definitions{}
		for _, s := range used {
			doc.Definitions.Subgraphs = append(doc.Definitions.Subgraphs, s.serialize())
		}
	}
	return doc
}

func (s *Subgraph) serialize() schema.Subgraph {
	links := make([]schema.LinkObject, 0, len(s.links))
	for _, l := range s.Links() {
		links = append(links, schema.LinkObject(linkToSchema(l)))
	}
	return schema.Subgraph{
		ID:            s.id.String(),
		Name:          s.Name,
		Revision:      s.revision,
		State:         *s.serializeState(),
		Inputs:        serializeIO(s.inputs),
		Outputs:       serializeIO(s.outputs),
		InputNode:     schema.IONode{ID: SubgraphInputNodeID, Bounding: s.inputNode},
		OutputNode:    schema.IONode{ID: SubgraphOutputNodeID, Bounding: s.outputNode},
		Nodes:         s.serializeNodes(),
		Links:         links,
		FloatingLinks: slices.Clone(s.floating),
		Groups:        s.serializeGroups(),
		Reroutes:      s.serializeReroutes(),
		Extra:         s.serializeExtra(),
		Version:       schema.ObjectVersion,
	}
}

func serializeIO(ios []*SubgraphIO) []schema.SubgraphIO {
	out := make([]schema.SubgraphIO, 0, len(ios))
	for _, io := range ios {
		ids := slices.Sorted(slices.Values(io.linkIDs))
		if ids == nil {
			ids = []LinkID{}
		}
		out = append(out, schema.SubgraphIO{
			ID:      io.ID.String(),
			Name:    io.Name,
			Type:    schema.SlotType(io.Type),
			LinkIDs: ids,
			Label:   io.Label,
		})
	}
	return out
}

func (g *Graph) serializeState() *schema.State {
	return &schema.State{
		LastGroupID:   g.state.LastGroupID,
		LastNodeID:    g.state.LastNodeID,
		LastLinkID:    g.state.LastLinkID,
		LastRerouteID: g.state.LastRerouteID,
	}
}

func (g *Graph) serializeNodes() []schema.Node {
	out := make([]schema.Node, 0, len(g.nodes))
	for _, n := range g.Nodes() {
		out = append(out, serializeNode(n))
	}
	return out
}

func serializeNode(n *Node) schema.Node {
	title := n.Title
	sn := schema.Node{
		ID:         n.id,
		Type:       n.Type,
		Pos:        n.pos,
		Size:       n.size,
		Flags:      orEmpty(n.Flags),
		Order:      n.Order,
		Mode:       int(n.mode),
		Title:      &title,
		Inputs:     make([]schema.Input, 0, len(n.inputs)),
		Outputs:    make([]schema.Output, 0, len(n.outputs)),
		Properties: orEmpty(n.Properties),
		Color:      n.Color,
		BgColor:    n.BgColor,
	}
	for _, in := range n.inputs {
		si := schema.Input{Name: in.Name, Type: schema.SlotType(in.Type), Label: in.Label}
		if l, ok := in.Link(); ok {
			si.Link = &l
		}
		if in.Widget != "" {
			si.Widget = &schema.WidgetRef{Name: in.Widget}
		}
		sn.Inputs = append(sn.Inputs, si)
	}
	for _, out := range n.outputs {
		links := slices.Sorted(slices.Values(out.links))
		if links == nil {
			links = []LinkID{}
		}
		sn.Outputs = append(sn.Outputs, schema.Output{
			Name:  out.Name,
			Type:  schema.SlotType(out.Type),
			Links: links,
			Label: out.Label,
		})
	}
	for _, w := range n.widgets {
		if !w.Serializes() {
			continue
		}
		v, err := w.MarshalValue()
		if err != nil || len(v) == 0 {
			v = json.RawMessage("null")
		}
		sn.WidgetsValues = append(sn.WidgetsValues, v)
	}
	return sn
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func linkToSchema(l Link) schema.Link {
	return schema.Link{
		ID:         l.ID,
		OriginID:   l.OriginID,
		OriginSlot: l.OriginSlot,
		TargetID:   l.TargetID,
		TargetSlot: l.TargetSlot,
		Type:       schema.SlotType(l.Type),
		ParentID:   l.ParentID,
	}
}

func (g *Graph) serializeLinks() ([]schema.Link, []schema.LinkExtension) {
	links := make([]schema.Link, 0, len(g.links))
	var ext []schema.LinkExtension
	for _, l := range g.Links() {
		links = append(links, linkToSchema(l))
		if l.ParentID != 0 {
			ext = append(ext, schema.LinkExtension{ID: l.ID, ParentID: l.ParentID})
		}
	}
	return links, ext
}

func (g *Graph) serializeGroups() []schema.Group {
	out := make([]schema.Group, 0, len(g.groups))
	for _, gr := range g.Groups() {
		out = append(out, schema.Group{
			ID:       gr.ID,
			Title:    gr.Title,
			Bounding: gr.bounding,
			Color:    gr.Color,
			FontSize: gr.FontSize,
			Flags:    gr.Flags,
		})
	}
	return out
}

func (g *Graph) serializeReroutes() []schema.Reroute {
	if len(g.reroutes) == 0 {
		return nil
	}
	out := make([]schema.Reroute, 0, len(g.reroutes))
	for _, r := range g.Reroutes() {
		out = append(out, schema.Reroute{
			ID:       r.ID,
			ParentID: r.ParentID,
			Pos:      r.Pos,
			LinkIDs:  r.LinkIDs(),
		})
	}
	return out
}

func (g *Graph) serializeExtra() map[string]json.RawMessage {
	extra := maps.Clone(g.extra)
	if extra == nil {
		extra = make(map[string]json.RawMessage)
	}
	return extra
}

// usedSubgraphs returns the definitions instantiated by the graph's nodes,
// directly or through other definitions, sorted by id.
func (g *Graph) usedSubgraphs() []*Subgraph {
	root := g.rootGraph()
	seen := make(map[*Subgraph]bool)
	var walk func(nodes map[NodeID]*Node)
	walk = func(nodes map[NodeID]*Node) {
		for _, n := range nodes {
			s, ok := root.subgraphByType(n.Type)
			if !ok || seen[s] {
				continue
			}
			seen[s] = true
			walk(s.nodes)
		}
	}
	walk(g.nodes)
	out := slices.Collect(maps.Keys(seen))
	slices.SortFunc(out, func(a, b *Subgraph) int { return strings.Compare(a.id.String(), b.id.String()) })
	return out
}
