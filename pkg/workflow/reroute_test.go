package workflow

import (
	"slices"
	"testing"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
)

func rerouteFixture(t *testing.T) (*Graph, NodeID, NodeID, Link) {
	t.Helper()
	g := newTestGraph(t)
	a := mustAdd(t, g, "LoadImage", geom.Pt(0, 0))
	b := mustAdd(t, g, "PreviewImage", geom.Pt(400, 0))
	return g, a, b, mustConnect(t, g, a, 0, b, 0)
}

func TestInsertReroute(t *testing.T) {
	g, _, _, l := rerouteFixture(t)

	near, err := g.InsertReroute(geom.Pt(300, 10), l.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Inserting before the input-side reroute puts the new one nearer the output.
	far, err := g.InsertReroute(geom.Pt(100, 10), l.ID, near)
	if err != nil {
		t.Fatal(err)
	}

	chain, err := g.RerouteChain(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(chain, []RerouteID{far, near}) {
		t.Errorf("chain = %v, want [%d %d]", chain, far, near)
	}
	got, _ := g.Link(l.ID)
	if got.ParentID != near {
		t.Errorf("link parent = %d, want %d", got.ParentID, near)
	}
	r, _ := g.Reroute(near)
	if r.ParentID != far || !slices.Equal(r.LinkIDs(), []LinkID{l.ID}) {
		t.Errorf("reroute %d = %+v", near, r)
	}
	if hit, ok := g.QueryRerouteAtPoint(geom.Pt(102, 12)); !ok || hit.ID != far {
		t.Errorf("QueryRerouteAtPoint = %v, %v", hit, ok)
	}
	checkConsistency(t, g)
}

func TestInsertRerouteErrors(t *testing.T) {
	g, a, _, l := rerouteFixture(t)
	c := mustAdd(t, g, "PreviewImage", geom.Pt(400, 300))
	other := mustConnect(t, g, a, 0, c, 0)
	r, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, 0)

	if _, err := g.InsertReroute(geom.Pt(0, 0), 99, 0); !errors.Is(err, errors.ErrCodeLinkNotFound) {
		t.Errorf("unknown link = %v", err)
	}
	if _, err := g.InsertReroute(geom.Pt(0, 0), l.ID, 42); !errors.Is(err, errors.ErrCodeRerouteNotFound) {
		t.Errorf("unknown reroute = %v", err)
	}
	if _, err := g.InsertReroute(geom.Pt(0, 0), other.ID, r); !errors.Is(err, errors.ErrCodeInvalidLink) {
		t.Errorf("reroute off path = %v", err)
	}
}

func TestSharedChain(t *testing.T) {
	g, a, _, l := rerouteFixture(t)
	c := mustAdd(t, g, "PreviewImage", geom.Pt(400, 300))
	r, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, 0)

	shared, err := g.ConnectVia(a, 0, c, 0, r)
	if err != nil {
		t.Fatal(err)
	}
	rr, _ := g.Reroute(r)
	if !slices.Equal(rr.LinkIDs(), []LinkID{l.ID, shared.ID}) {
		t.Errorf("linkIds = %v", rr.LinkIDs())
	}

	// The reroute survives while one link still uses it.
	if err := g.Disconnect(l.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Reroute(r); !ok {
		t.Fatal("shared reroute removed too early")
	}
	if err := g.Disconnect(shared.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Reroute(r); ok {
		t.Error("orphaned reroute survived")
	}
	checkConsistency(t, g)
}

func TestConnectViaRejectsForeignChain(t *testing.T) {
	g, _, b, l := rerouteFixture(t)
	r, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, 0)
	other := mustAdd(t, g, "LoadImage", geom.Pt(0, 300))

	if _, err := g.ConnectVia(other, 0, b, 0, r); !errors.Is(err, errors.ErrCodeInvalidLink) {
		t.Errorf("ConnectVia foreign chain = %v, want INVALID_LINK", err)
	}
	if _, err := g.ConnectVia(other, 0, b, 0, 77); !errors.Is(err, errors.ErrCodeRerouteNotFound) {
		t.Errorf("ConnectVia unknown reroute = %v", err)
	}
}

func TestReplaceKeepsReusedReroute(t *testing.T) {
	g, a, b, l := rerouteFixture(t)
	r, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, 0)

	// Reconnecting the same input through the same reroute must not drop it
	// when the old link goes away.
	nl, err := g.ConnectVia(a, 0, b, 0, r)
	if err != nil {
		t.Fatal(err)
	}
	rr, ok := g.Reroute(r)
	if !ok || !slices.Equal(rr.LinkIDs(), []LinkID{nl.ID}) {
		t.Errorf("reroute = %+v, %v", rr, ok)
	}
	checkConsistency(t, g)
}

func TestRemoveReroutePromotes(t *testing.T) {
	g, _, _, l := rerouteFixture(t)
	near, _ := g.InsertReroute(geom.Pt(300, 10), l.ID, 0)
	mid, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, near)
	far, _ := g.InsertReroute(geom.Pt(100, 10), l.ID, mid)

	if err := g.RemoveReroute(mid); err != nil {
		t.Fatal(err)
	}
	r, _ := g.Reroute(near)
	if r.ParentID != far {
		t.Errorf("near parent = %d, want %d", r.ParentID, far)
	}
	if err := g.RemoveReroute(near); err != nil {
		t.Fatal(err)
	}
	got, _ := g.Link(l.ID)
	if got.ParentID != far {
		t.Errorf("link parent = %d, want %d", got.ParentID, far)
	}
	if err := g.RemoveReroute(near); !errors.Is(err, errors.ErrCodeRerouteNotFound) {
		t.Errorf("second RemoveReroute = %v", err)
	}
	checkConsistency(t, g)
}

func TestMoveReroute(t *testing.T) {
	g, _, _, l := rerouteFixture(t)
	r, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, 0)
	if err := g.MoveReroute(r, geom.Pt(2000, 2000)); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.QueryRerouteAtPoint(geom.Pt(200, 10)); ok {
		t.Error("reroute still found at old position")
	}
	if hits := g.QueryReroutesInBounds(geom.R(1990, 1990, 5, 5)); len(hits) != 1 {
		t.Errorf("hits = %v", hits)
	}
	if err := g.MoveReroute(99, geom.Pt(0, 0)); !errors.Is(err, errors.ErrCodeRerouteNotFound) {
		t.Errorf("MoveReroute unknown = %v", err)
	}
}

func TestRerouteChainLoop(t *testing.T) {
	g, _, _, l := rerouteFixture(t)
	a, _ := g.InsertReroute(geom.Pt(300, 10), l.ID, 0)
	b, _ := g.InsertReroute(geom.Pt(200, 10), l.ID, a)
	g.reroutes[b].ParentID = a

	if _, err := g.RerouteChain(l.ID); !errors.Is(err, errors.ErrCodeInvalidLink) {
		t.Errorf("RerouteChain on loop = %v, want INVALID_LINK", err)
	}
}
