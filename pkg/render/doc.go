// Package render derives drawing geometry from a workflow graph.
//
// # Overview
//
// Nothing in this package is stored in the graph or serialized. It turns
// node positions, slots, links and reroutes into the shapes a canvas needs:
//
//   - Slot centres and hit areas ([InputPos], [OutputPos], [SlotRect], [SlotAt])
//   - Link segments, one per hop between consecutive reroutes ([LinkSegment])
//   - A lazily rebuilt segment index for pointer queries ([SegmentCache])
//   - SVG to PDF/PNG conversion ([ToPDF], [ToPNG])
//
// # Link Segments
//
// A link with reroutes r1..rn is drawn as n+1 cubic curves:
// output → r1 → … → rn → input. [Segments] flattens each curve into
// [BezierSamples] straight pieces so hit-testing reduces to point-segment
// distance.
//
// # Caching
//
// [SegmentCache] observes the graph. Any change set marks it dirty; the
// next read rebuilds every segment and its quad-tree in one pass.
//
//	cache := render.NewSegmentCache(g, spatial.Options{})
//	defer cache.Close()
//	if seg, ok := cache.SegmentAt(pointer, 5); ok {
//		fmt.Println(seg.Link, seg.Type)
//	}
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage exports a graph as Graphviz DOT and renders it
// to SVG.
//
// [nodelink]: github.com/matzehuels/nodegraph/pkg/render/nodelink
package render
