package render

import (
	"fmt"
	"slices"

	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/spatial"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// SegmentCache keeps the link segments of a graph and a spatial index over
// them. It subscribes to the graph's change sets, marks itself dirty on
// any change and rebuilds on the next read.
//
// Like the graph, a SegmentCache is not safe for concurrent use.
type SegmentCache struct {
	g       *workflow.Graph
	unsub   func()
	dirty   bool
	version uint64

	segs  []*LinkSegment
	byKey map[SegmentKey]*LinkSegment
	index *spatial.QuadTree[SegmentKey]
}

// NewSegmentCache returns a cache bound to g. Call Close to stop
// observing the graph.
func NewSegmentCache(g *workflow.Graph, opts spatial.Options) *SegmentCache {
	c := &SegmentCache{
		g:     g,
		dirty: true,
		index: spatial.New[SegmentKey](opts),
	}
	c.unsub = g.Subscribe(c)
	return c
}

// GraphChanged implements workflow.Observer.
func (c *SegmentCache) GraphChanged(workflow.ChangeSet) { c.dirty = true }

// Close detaches the cache from its graph.
func (c *SegmentCache) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

// Dirty reports whether the next read will rebuild.
func (c *SegmentCache) Dirty() bool { return c.dirty || c.version != c.g.Version() }

func (c *SegmentCache) refresh() {
	if !c.Dirty() {
		return
	}
	c.segs = Segments(c.g)
	c.byKey = make(map[SegmentKey]*LinkSegment, len(c.segs))
	c.index.Clear()
	entries := make([]spatial.Entry[SegmentKey], 0, len(c.segs))
	for _, s := range c.segs {
		c.byKey[s.SegmentKey] = s
		entries = append(entries, spatial.Entry[SegmentKey]{ID: s.SegmentKey, Bounds: s.Bounds})
	}
	c.index.BatchInsert(entries)
	c.dirty = false
	c.version = c.g.Version()
}

// Segments returns every segment, ordered by link id and hop.
func (c *SegmentCache) Segments() []*LinkSegment {
	c.refresh()
	return slices.Clone(c.segs)
}

// InBounds returns the segments whose bounds overlap r.
func (c *SegmentCache) InBounds(r geom.Rect) []*LinkSegment {
	c.refresh()
	keys := c.index.QueryBounds(r)
	out := make([]*LinkSegment, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.byKey[k])
	}
	return out
}

// SegmentAt returns the segment nearest p within tolerance.
func (c *SegmentCache) SegmentAt(p geom.Point, tolerance float64) (*LinkSegment, bool) {
	c.refresh()
	area := geom.R(p.X-tolerance, p.Y-tolerance, 2*tolerance, 2*tolerance)
	var best *LinkSegment
	bestDist := tolerance
	for _, k := range c.index.QueryBounds(area) {
		s := c.byKey[k]
		if d := s.Distance(p); d <= bestDist {
			best, bestDist = s, d
		}
	}
	return best, best != nil
}

// Tooltip describes the link under p: its type and the output it comes
// from. It returns "" when no link is near p.
func (c *SegmentCache) Tooltip(p geom.Point, tolerance float64) string {
	s, ok := c.SegmentAt(p, tolerance)
	if !ok {
		return ""
	}
	name := fmt.Sprintf("%s[%d]", s.Origin.Node, s.Origin.Index)
	if n, ok := c.g.Node(s.Origin.Node); ok {
		if out := n.Output(s.Origin.Index); out != nil {
			name = n.Title + "." + out.Name
		}
	}
	typ := workflow.TypeName(s.Type)
	if typ == "" {
		typ = "*"
	}
	return fmt.Sprintf("%s (%s) link %d", typ, name, s.Link)
}
