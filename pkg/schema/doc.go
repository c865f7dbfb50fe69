// Package schema defines the JSON document format for workflow graphs.
//
// # Overview
//
// A workflow document is a flat, versioned snapshot of a graph: nodes with
// their slots and widget values, links, groups, reroutes, subgraph
// definitions and an opaque extra bag. The in-memory model lives in
// package workflow; this package only describes the bytes.
//
// # Links
//
// Root documents (version 0.4) store links as six-element tuples:
//
//	[id, origin_id, origin_slot, target_id, target_slot, type]
//
// Subgraph definitions and version 1 documents use objects with the same
// fields plus parentId. Both [Link] and [LinkObject] decode either form.
//
// # Identifiers
//
// Node ids are integers or strings ([NodeID]); link, reroute and group ids
// are integers. Ids -10 and -20 are reserved for the input and output
// pseudo-nodes of a subgraph.
//
// # Determinism
//
// [Marshal] indents with two spaces and never escapes HTML. Combined with
// sorted slices and Go's sorted map keys, equal documents encode to equal
// bytes, which the store uses for content hashes.
package schema
