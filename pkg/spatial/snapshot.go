package spatial

import "github.com/matzehuels/nodegraph/pkg/geom"

// Snapshot is a read-only copy of one quad and its subtree, for debugging
// overlays and tests.
type Snapshot[K comparable] struct {
	Bounds   geom.Rect     `json:"bounds"`
	Depth    int           `json:"depth"`
	Items    []K           `json:"items,omitempty"`
	Children []Snapshot[K] `json:"children,omitempty"`
}

// Stats summarises the shape of a tree.
type Stats struct {
	Items    int // indexed items
	Quads    int // quads in the tree, including the root
	MaxDepth int // deepest quad
	Outside  int // items outside the root bounds
	Rebuilds int // automatic and explicit rebuilds
}

// Snapshot copies the tree structure. Items within a quad are listed in
// insertion order of that quad.
func (t *QuadTree[K]) Snapshot() Snapshot[K] {
	return snapshot(t.root)
}

func snapshot[K comparable](q *quad[K]) Snapshot[K] {
	s := Snapshot[K]{Bounds: q.bounds, Depth: q.depth}
	for _, it := range q.items {
		s.Items = append(s.Items, it.id)
	}
	if q.children != nil {
		s.Children = make([]Snapshot[K], 0, 4)
		for _, c := range q.children {
			s.Children = append(s.Children, snapshot(c))
		}
	}
	return s
}

// Stats reports item and quad counts.
func (t *QuadTree[K]) Stats() Stats {
	st := Stats{Items: len(t.items), Outside: t.outside, Rebuilds: t.rebuilds}
	t.root.visit(func(q *quad[K]) bool {
		st.Quads++
		st.MaxDepth = max(st.MaxDepth, q.depth)
		return true
	})
	return st
}

// RootBounds returns the region currently covered by the root quad.
func (t *QuadTree[K]) RootBounds() geom.Rect { return t.root.bounds }
