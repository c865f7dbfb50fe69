package spatial

import (
	"slices"

	"github.com/matzehuels/nodegraph/pkg/geom"
)

// Default tuning values. They favour shallow trees: node graphs rarely hold
// more than a few thousand items and most queries are viewport-sized.
const (
	DefaultMaxDepth = 8
	DefaultMaxItems = 8
)

// DefaultBounds is the root region used when Options.Bounds is empty.
var DefaultBounds = geom.R(-10000, -10000, 20000, 20000)

// Options configures a [QuadTree].
type Options struct {
	// Bounds is the region covered by the root. Items outside it are still
	// indexed (at the root) and trigger a rebuild once they pile up.
	Bounds geom.Rect

	// MaxDepth limits how deep the tree subdivides. The root is depth 0.
	MaxDepth int

	// MaxItems is the item count above which a leaf splits into quadrants.
	MaxItems int
}

func (o Options) withDefaults() Options {
	if o.Bounds.Empty() {
		o.Bounds = DefaultBounds
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	return o
}

// Entry is an indexed item: an id with its bounding rectangle.
type Entry[K comparable] struct {
	ID     K
	Bounds geom.Rect
}

type item[K comparable] struct {
	id     K
	bounds geom.Rect
	seq    uint64 // z-order; higher is on top
}

type quad[K comparable] struct {
	bounds   geom.Rect
	depth    int
	items    []*item[K]
	children *[4]*quad[K]
	parent   *quad[K]
}

// QuadTree is a region quad-tree mapping ids to bounding rectangles.
//
// Each item lives in the deepest quad that fully contains it, so items
// that straddle a quadrant boundary stay with the parent. An id→quad map
// makes Remove and Update O(depth). The tree is a derived cache: it never
// owns the entities it indexes.
//
// QuadTree is not safe for concurrent use.
type QuadTree[K comparable] struct {
	opts     Options
	root     *quad[K]
	where    map[K]*quad[K]
	items    map[K]*item[K]
	seq      uint64
	outside  int
	rebuilds int
}

// New returns an empty tree.
func New[K comparable](opts Options) *QuadTree[K] {
	opts = opts.withDefaults()
	return &QuadTree[K]{
		opts:  opts,
		root:  &quad[K]{bounds: opts.Bounds},
		where: make(map[K]*quad[K]),
		items: make(map[K]*item[K]),
	}
}

// Len returns the number of indexed items.
func (t *QuadTree[K]) Len() int { return len(t.items) }

// Has reports whether id is indexed.
func (t *QuadTree[K]) Has(id K) bool {
	_, ok := t.items[id]
	return ok
}

// Bounds returns the indexed rectangle for id.
func (t *QuadTree[K]) Bounds(id K) (geom.Rect, bool) {
	it, ok := t.items[id]
	if !ok {
		return geom.Rect{}, false
	}
	return it.bounds, true
}

// Insert indexes id at bounds on top of every existing item. Inserting an
// id that is already present behaves like [QuadTree.Update].
func (t *QuadTree[K]) Insert(id K, bounds geom.Rect) {
	if _, ok := t.items[id]; ok {
		t.Update(id, bounds)
		return
	}
	t.seq++
	it := &item[K]{id: id, bounds: bounds, seq: t.seq}
	t.items[id] = it
	t.place(it)
	t.maybeRebuild()
}

// BatchInsert indexes every entry in order.
func (t *QuadTree[K]) BatchInsert(entries []Entry[K]) {
	for _, e := range entries {
		t.Insert(e.ID, e.Bounds)
	}
}

// Remove drops id from the index. It reports whether id was present.
func (t *QuadTree[K]) Remove(id K) bool {
	it, ok := t.items[id]
	if !ok {
		return false
	}
	t.unplace(it)
	delete(t.items, id)
	return true
}

// Update moves id to new bounds, keeping its z-order. Unknown ids are
// inserted.
func (t *QuadTree[K]) Update(id K, bounds geom.Rect) {
	it, ok := t.items[id]
	if !ok {
		t.Insert(id, bounds)
		return
	}
	if it.bounds == bounds {
		return
	}
	// Still the deepest quad that contains it: no structural change needed.
	q := t.where[id]
	if q.bounds.ContainsRect(bounds) && (q.children == nil || q.childFor(bounds) == nil) &&
		(q != t.root || q.bounds.ContainsRect(it.bounds)) {
		it.bounds = bounds
		return
	}
	t.unplace(it)
	it.bounds = bounds
	t.place(it)
	t.maybeRebuild()
}

// Raise moves id to the top of the z-order.
func (t *QuadTree[K]) Raise(id K) bool {
	it, ok := t.items[id]
	if !ok {
		return false
	}
	t.seq++
	it.seq = t.seq
	return true
}

// Clear removes every item and resets the root to the configured bounds.
func (t *QuadTree[K]) Clear() {
	t.root = &quad[K]{bounds: t.opts.Bounds}
	clear(t.where)
	clear(t.items)
	t.outside = 0
}

// QueryPoint returns the ids whose bounds contain p, top-most first.
func (t *QuadTree[K]) QueryPoint(p geom.Point) []K {
	var hits []*item[K]
	t.root.visit(func(q *quad[K]) bool {
		if q != t.root && !q.bounds.Contains(p) {
			return false
		}
		for _, it := range q.items {
			if it.bounds.Contains(p) {
				hits = append(hits, it)
			}
		}
		return true
	})
	return ids(hits)
}

// QueryBounds returns the ids whose bounds overlap r, top-most first.
func (t *QuadTree[K]) QueryBounds(r geom.Rect) []K {
	var hits []*item[K]
	t.root.visit(func(q *quad[K]) bool {
		if q != t.root && !q.bounds.Overlaps(r) {
			return false
		}
		for _, it := range q.items {
			if it.bounds.Overlaps(r) {
				hits = append(hits, it)
			}
		}
		return true
	})
	return ids(hits)
}

// QueryContained returns the ids whose bounds lie entirely inside r,
// top-most first.
func (t *QuadTree[K]) QueryContained(r geom.Rect) []K {
	var hits []*item[K]
	t.root.visit(func(q *quad[K]) bool {
		if q != t.root && !q.bounds.Overlaps(r) {
			return false
		}
		for _, it := range q.items {
			if r.ContainsRect(it.bounds) {
				hits = append(hits, it)
			}
		}
		return true
	})
	return ids(hits)
}

// Rebuild re-creates the tree around the union of the configured bounds
// and every indexed item, preserving z-order.
func (t *QuadTree[K]) Rebuild() {
	all := make([]*item[K], 0, len(t.items))
	bounds := t.opts.Bounds
	for _, it := range t.items {
		all = append(all, it)
		bounds = bounds.Union(it.bounds)
	}
	slices.SortFunc(all, func(a, b *item[K]) int { return cmpSeq(a.seq, b.seq) })

	// Pad so items on the far edges do not immediately fall outside again.
	pad := max(bounds.W, bounds.H) * 0.1
	t.root = &quad[K]{bounds: bounds.Inset(-pad)}
	clear(t.where)
	t.outside = 0
	t.rebuilds++
	for _, it := range all {
		t.place(it)
	}
}

func (t *QuadTree[K]) maybeRebuild() {
	if t.outside > t.opts.MaxItems {
		t.Rebuild()
	}
}

func (t *QuadTree[K]) place(it *item[K]) {
	q := t.root
	if !q.bounds.ContainsRect(it.bounds) {
		t.outside++
		q.items = append(q.items, it)
		t.where[it.id] = q
		return
	}
	for {
		if q.children == nil {
			q.items = append(q.items, it)
			t.where[it.id] = q
			if len(q.items) > t.opts.MaxItems && q.depth < t.opts.MaxDepth {
				t.split(q)
			}
			return
		}
		c := q.childFor(it.bounds)
		if c == nil {
			q.items = append(q.items, it)
			t.where[it.id] = q
			return
		}
		q = c
	}
}

func (t *QuadTree[K]) unplace(it *item[K]) {
	q := t.where[it.id]
	if q == t.root && !t.root.bounds.ContainsRect(it.bounds) {
		t.outside--
	}
	q.items = slices.DeleteFunc(q.items, func(x *item[K]) bool { return x == it })
	delete(t.where, it.id)
	t.collapse(q)
}

func (t *QuadTree[K]) split(q *quad[K]) {
	var children [4]*quad[K]
	for i, r := range q.bounds.Quadrants() {
		children[i] = &quad[K]{bounds: r, depth: q.depth + 1, parent: q}
	}
	q.children = &children

	keep := q.items[:0]
	for _, it := range q.items {
		if q == t.root && !q.bounds.ContainsRect(it.bounds) {
			keep = append(keep, it)
			continue
		}
		c := q.childFor(it.bounds)
		if c == nil {
			keep = append(keep, it)
			continue
		}
		c.items = append(c.items, it)
		t.where[it.id] = c
	}
	clear(q.items[len(keep):])
	q.items = keep

	for _, c := range children {
		if len(c.items) > t.opts.MaxItems && c.depth < t.opts.MaxDepth {
			t.split(c)
		}
	}
}

// collapse merges subtrees that have fallen to MaxItems or fewer items.
func (t *QuadTree[K]) collapse(q *quad[K]) {
	for ; q != nil; q = q.parent {
		if q.children == nil {
			continue
		}
		if q.count() > t.opts.MaxItems {
			return
		}
		q.visit(func(c *quad[K]) bool {
			if c == q {
				return true
			}
			for _, it := range c.items {
				q.items = append(q.items, it)
				t.where[it.id] = q
			}
			return true
		})
		q.children = nil
	}
}

func (q *quad[K]) childFor(bounds geom.Rect) *quad[K] {
	for _, c := range q.children {
		if c.bounds.ContainsRect(bounds) {
			return c
		}
	}
	return nil
}

func (q *quad[K]) count() int {
	n := 0
	q.visit(func(c *quad[K]) bool {
		n += len(c.items)
		return true
	})
	return n
}

// visit walks q depth-first; fn returning false prunes that subtree.
func (q *quad[K]) visit(fn func(*quad[K]) bool) {
	if !fn(q) || q.children == nil {
		return
	}
	for _, c := range q.children {
		c.visit(fn)
	}
}

func ids[K comparable](hits []*item[K]) []K {
	slices.SortFunc(hits, func(a, b *item[K]) int { return cmpSeq(b.seq, a.seq) })
	out := make([]K, len(hits))
	for i, it := range hits {
		out[i] = it.id
	}
	return out
}

func cmpSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
