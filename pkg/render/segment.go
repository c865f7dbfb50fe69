package render

import (
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// BezierSamples is the number of straight pieces a segment's curve is
// flattened into for hit-testing.
const BezierSamples = 16

// SegmentKey identifies one hop of one link. Hop 0 leaves the output;
// the last hop enters the input.
type SegmentKey struct {
	Link workflow.LinkID
	Hop  int
}

// LinkSegment is the drawn curve between two consecutive points of a link:
// output slot, reroutes in order, input slot. Segments are derived from
// the graph and never serialized.
type LinkSegment struct {
	SegmentKey

	Start geom.Point
	End   geom.Point
	Path  []geom.Point
	// Bounds covers Path. It is the segment's spatial index key.
	Bounds geom.Rect

	Origin workflow.SlotRef
	Type   string
}

// Distance returns the distance from p to the flattened curve.
func (s *LinkSegment) Distance(p geom.Point) float64 {
	best := p.Distance(s.Start)
	for i := 1; i < len(s.Path); i++ {
		best = min(best, geom.SegmentDistance(p, s.Path[i-1], s.Path[i]))
	}
	return best
}

// Segments returns the segments of every link in g, ordered by link id
// and hop. Links whose endpoints or reroute chain cannot be resolved are
// skipped.
func Segments(g *workflow.Graph) []*LinkSegment {
	var out []*LinkSegment
	for _, l := range g.Links() {
		out = append(out, LinkSegments(g, l)...)
	}
	return out
}

// LinkSegments returns the segments of one link.
func LinkSegments(g *workflow.Graph, l workflow.Link) []*LinkSegment {
	start, ok := originPos(g, l.OriginID, l.OriginSlot)
	if !ok {
		return nil
	}
	end, ok := targetPos(g, l.TargetID, l.TargetSlot)
	if !ok {
		return nil
	}
	chain, err := g.RerouteChain(l.ID)
	if err != nil {
		return nil
	}

	pts := make([]geom.Point, 0, len(chain)+2)
	pts = append(pts, start)
	for _, id := range chain {
		r, _ := g.Reroute(id)
		pts = append(pts, r.Pos)
	}
	pts = append(pts, end)

	segs := make([]*LinkSegment, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		path := Bezier(pts[i-1], pts[i], BezierSamples)
		segs = append(segs, &LinkSegment{
			SegmentKey: SegmentKey{Link: l.ID, Hop: i - 1},
			Start:      pts[i-1],
			End:        pts[i],
			Path:       path,
			Bounds:     geom.Bounds(path...),
			Origin:     l.Origin(),
			Type:       l.Type,
		})
	}
	return segs
}

// Bezier flattens the horizontal S-curve from a to b into n pieces. The
// control points pull a quarter of the distance to the right of a and to
// the left of b.
func Bezier(a, b geom.Point, n int) []geom.Point {
	n = max(n, 1)
	d := a.Distance(b) * 0.25
	c1 := geom.Pt(a.X+d, a.Y)
	c2 := geom.Pt(b.X-d, b.Y)

	pts := make([]geom.Point, n+1)
	for i := range n + 1 {
		t := float64(i) / float64(n)
		u := 1 - t
		w0, w1, w2, w3 := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		pts[i] = geom.Pt(
			w0*a.X+w1*c1.X+w2*c2.X+w3*b.X,
			w0*a.Y+w1*c1.Y+w2*c2.Y+w3*b.Y,
		)
	}
	return pts
}
