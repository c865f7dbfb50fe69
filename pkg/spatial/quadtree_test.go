package spatial

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/nodegraph/pkg/geom"
)

func TestQuadTree_InsertAndQuery(t *testing.T) {
	tree := New[int](Options{})
	tree.Insert(1, geom.R(100, 100, 200, 100))
	tree.Insert(2, geom.R(300, 300, 200, 100))
	tree.Insert(3, geom.R(500, 200, 100, 200))

	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, []int{1}, tree.QueryPoint(geom.Pt(150, 150)))
	assert.Empty(t, tree.QueryPoint(geom.Pt(0, 0)))
	assert.ElementsMatch(t, []int{1, 2}, tree.QueryBounds(geom.R(50, 50, 300, 300)))
	assert.ElementsMatch(t, []int{1}, tree.QueryContained(geom.R(50, 50, 300, 200)))

	b, ok := tree.Bounds(3)
	require.True(t, ok)
	assert.Equal(t, geom.R(500, 200, 100, 200), b)
}

func TestQuadTree_ZOrder(t *testing.T) {
	tree := New[string](Options{})
	tree.Insert("bottom", geom.R(0, 0, 100, 100))
	tree.Insert("top", geom.R(50, 50, 100, 100))

	assert.Equal(t, []string{"top", "bottom"}, tree.QueryPoint(geom.Pt(75, 75)))

	// Moving keeps the stacking order.
	tree.Update("bottom", geom.R(10, 10, 100, 100))
	assert.Equal(t, []string{"top", "bottom"}, tree.QueryPoint(geom.Pt(75, 75)))

	require.True(t, tree.Raise("bottom"))
	assert.Equal(t, []string{"bottom", "top"}, tree.QueryPoint(geom.Pt(75, 75)))
	assert.False(t, tree.Raise("missing"))
}

func TestQuadTree_UpdateMovesItem(t *testing.T) {
	tree := New[string](Options{})
	tree.Insert("node1", geom.R(100, 100, 200, 100))
	tree.Update("node1", geom.R(500, 500, 200, 100))

	assert.NotContains(t, tree.QueryBounds(geom.R(50, 50, 300, 200)), "node1")
	assert.Contains(t, tree.QueryBounds(geom.R(450, 450, 300, 200)), "node1")
}

func TestQuadTree_SplitAndCollapse(t *testing.T) {
	tree := New[int](Options{MaxItems: 4})
	for i := range 20 {
		tree.Insert(i, geom.R(float64(i)*300, float64(i%5)*300, 50, 50))
	}

	st := tree.Stats()
	assert.Equal(t, 20, st.Items)
	assert.Greater(t, st.Quads, 1)
	assert.GreaterOrEqual(t, st.MaxDepth, 1)
	for i := range 20 {
		hits := tree.QueryPoint(geom.Pt(float64(i)*300+25, float64(i%5)*300+25))
		assert.Equal(t, []int{i}, hits, "item %d", i)
	}

	for i := 1; i < 20; i++ {
		require.True(t, tree.Remove(i))
	}
	st = tree.Stats()
	assert.Equal(t, 1, st.Items)
	assert.Equal(t, 1, st.Quads)
	assert.False(t, tree.Remove(5))
}

func TestQuadTree_MaxDepth(t *testing.T) {
	tree := New[int](Options{MaxItems: 1, MaxDepth: 2})
	// All identical: they can never be separated.
	for i := range 10 {
		tree.Insert(i, geom.R(10, 10, 1, 1))
	}
	assert.LessOrEqual(t, tree.Stats().MaxDepth, 2)
	assert.Len(t, tree.QueryPoint(geom.Pt(10.5, 10.5)), 10)
}

func TestQuadTree_OutsideRootRebuilds(t *testing.T) {
	tree := New[int](Options{Bounds: geom.R(0, 0, 100, 100), MaxItems: 2})
	tree.Insert(1, geom.R(500, 500, 10, 10))
	tree.Insert(2, geom.R(-300, 40, 10, 10))

	assert.Equal(t, []int{1}, tree.QueryPoint(geom.Pt(505, 505)))
	assert.Equal(t, 2, tree.Stats().Outside)
	assert.Equal(t, 0, tree.Stats().Rebuilds)

	tree.Insert(3, geom.R(900, -200, 10, 10))
	st := tree.Stats()
	assert.Equal(t, 1, st.Rebuilds)
	assert.Equal(t, 0, st.Outside)
	assert.True(t, tree.RootBounds().ContainsRect(geom.R(900, -200, 10, 10)))
	assert.Equal(t, []int{2}, tree.QueryPoint(geom.Pt(-295, 45)))
}

func TestQuadTree_Clear(t *testing.T) {
	tree := New[int](Options{})
	tree.BatchInsert([]Entry[int]{
		{ID: 1, Bounds: geom.R(0, 0, 10, 10)},
		{ID: 2, Bounds: geom.R(20, 20, 10, 10)},
	})
	require.Equal(t, 2, tree.Len())

	tree.Clear()
	assert.Equal(t, 0, tree.Len())
	assert.False(t, tree.Has(1))
	assert.Empty(t, tree.QueryBounds(geom.R(-100, -100, 200, 200)))
}

func TestQuadTree_Snapshot(t *testing.T) {
	tree := New[int](Options{Bounds: geom.R(0, 0, 100, 100), MaxItems: 1})
	tree.Insert(1, geom.R(10, 10, 5, 5))
	tree.Insert(2, geom.R(60, 60, 5, 5))
	tree.Insert(3, geom.R(45, 45, 10, 10)) // straddles the centre

	snap := tree.Snapshot()
	assert.Equal(t, geom.R(0, 0, 100, 100), snap.Bounds)
	assert.Equal(t, []int{3}, snap.Items)
	require.Len(t, snap.Children, 4)
	assert.Equal(t, []int{1}, snap.Children[0].Items)
	assert.Equal(t, []int{2}, snap.Children[3].Items)
}

// TestQuadTree_MatchesBruteForce checks the index against a linear scan
// after a random mix of inserts, moves and removals.
func TestQuadTree_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tree := New[int](Options{Bounds: geom.R(0, 0, 4000, 4000)})
	truth := map[int]geom.Rect{}

	randRect := func() geom.Rect {
		return geom.R(rng.Float64()*5000-500, rng.Float64()*5000-500, 20+rng.Float64()*300, 20+rng.Float64()*200)
	}

	for i := range 500 {
		r := randRect()
		tree.Insert(i, r)
		truth[i] = r
	}
	for range 2000 {
		id := rng.IntN(600)
		switch rng.IntN(3) {
		case 0:
			tree.Remove(id)
			delete(truth, id)
		default:
			r := randRect()
			tree.Update(id, r)
			truth[id] = r
		}
	}

	require.Equal(t, len(truth), tree.Len())
	for range 50 {
		q := randRect()
		q.W, q.H = q.W*3, q.H*3

		var want []int
		for id, r := range truth {
			if r.Overlaps(q) {
				want = append(want, id)
			}
		}
		assert.ElementsMatch(t, want, tree.QueryBounds(q))

		p := q.Centre()
		want = want[:0]
		for id, r := range truth {
			if r.Contains(p) {
				want = append(want, id)
			}
		}
		assert.ElementsMatch(t, want, tree.QueryPoint(p))
	}
}
