// Package pkg provides the core libraries of nodegraph, a node-graph
// workflow model with spatial queries.
//
// # Overview
//
// A workflow is a graph of typed nodes whose output slots feed input slots
// through links. Links may pass through reroutes, nodes may be organised in
// groups, and a graph may define subgraphs that other nodes instantiate.
// The pkg directory is organized into four areas:
//
//  1. [workflow] - The graph model: nodes, slots, links, reroutes, groups,
//     subgraphs, change events, load and save.
//  2. [schema] - The on-disk document format and its versions.
//  3. [spatial], [geom], [render] - Geometry, the quadtree index, slot
//     positions and link segments for hit testing.
//  4. [store], [workspace] - Persistent documents over file, badger, redis
//     or mongo backends.
//
// Supporting packages: [registry] (node type definitions), [errors] (typed
// errors), [observability] (metrics hooks) and [buildinfo].
//
// # Data Flow
//
//	workflow JSON
//	     ↓
//	[schema] package (decode, version detection)
//	     ↓
//	[workflow] package (configure: repair, index, link)
//	     ↓
//	queries / edits / [render/nodelink] diagrams
//	     ↓
//	[workflow] serialize → [store]
//
// # Quick Start
//
//	doc, err := schema.ReadFile("flow.json")
//	if err != nil {
//	    return err
//	}
//	g := workflow.New(workflow.Options{})
//	report, err := g.Configure(doc)
//	if err != nil {
//	    return err
//	}
//	if n, ok := g.QueryNodeAtPoint(geom.Pt(120, 340)); ok {
//	    fmt.Println(n.Title)
//	}
//	data, _ := schema.Marshal(g.Serialize())
package pkg
