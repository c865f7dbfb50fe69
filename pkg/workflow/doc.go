// Package workflow implements the retained-mode node graph: nodes with
// typed slots and widgets, links between slots, reroute waypoints, groups
// and reusable subgraph definitions.
//
// # Overview
//
// A [Graph] is the aggregate root. It owns every entity in id-keyed maps;
// entities refer to each other by id only. Links and reroutes are returned
// as copies, nodes and groups as pointers whose geometry setters route
// back through the graph so the spatial indexes stay current.
//
//	reg := registry.New()
//	g := workflow.New(workflow.Options{Registry: reg})
//	a, _ := g.CreateNode("LoadImage")
//	b, _ := g.CreateNode("PreviewImage")
//	aid, _ := g.AddNode(a)
//	bid, _ := g.AddNode(b)
//	link, err := g.Connect(aid, 0, bid, 0)
//
// # Connections
//
// [Graph.Connect] validates in a fixed order: both nodes exist, both slot
// indices are in range, and the slot types are compatible under the
// graph's [registry.Registry]. An input holds at most one link; connecting
// into an occupied input replaces the old link, and observers see both
// changes in one [ChangeSet]. Removing a node removes every link touching
// it, and removing a link removes the reroutes it leaves empty.
//
// # Reroutes
//
// A link's ParentID names the reroute nearest its input; each reroute's
// ParentID points one step further towards the output. Links from the
// same output may share a chain. See [Graph.InsertReroute] and
// [Graph.RerouteChain].
//
// # Serialization
//
// [Graph.Serialize] writes the canonical document of package schema and
// [Graph.Configure] reads it back. Configure is tolerant: malformed
// entities are dropped, logged and listed in a [LoadReport] rather than
// failing the load. Serializing a configured document reproduces it
// exactly.
//
// # Change Notification
//
// Observers registered with [Graph.Subscribe] receive a [ChangeSet] after
// each mutation commits. [Graph.Batch] coalesces several mutations into
// one change set. Derived views such as the render segment cache compare
// [Graph.Version] to decide when to recompute.
//
// # Concurrency
//
// A Graph has a single writer. Callers that share a graph across
// goroutines must serialise access themselves.
package workflow
