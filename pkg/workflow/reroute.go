package workflow

import (
	"slices"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
)

// InsertReroute adds a waypoint at pos on link linkID and returns its id.
// The link keeps its id.
//
// With before zero the reroute is placed next to the input end of the
// link. Otherwise it is placed between before, which must lie on the
// link's path, and before's parent; every link passing through before then
// passes through the new reroute too.
func (g *Graph) InsertReroute(pos geom.Point, linkID LinkID, before RerouteID) (RerouteID, error) {
	l, ok := g.links[linkID]
	if !ok {
		return 0, errors.New(errors.ErrCodeLinkNotFound, "link %d not found", linkID)
	}
	r := &Reroute{Pos: pos, linkIDs: make(map[LinkID]struct{})}
	if before == 0 {
		if _, err := g.chainFrom(l.ParentID); err != nil {
			return 0, err
		}
		r.ParentID = l.ParentID
		r.linkIDs[linkID] = struct{}{}
	} else {
		b, ok := g.reroutes[before]
		if !ok {
			return 0, errors.New(errors.ErrCodeRerouteNotFound, "reroute %d not found", before)
		}
		chain, err := g.chainFrom(l.ParentID)
		if err != nil {
			return 0, err
		}
		if !slices.Contains(chain, before) {
			return 0, errors.New(errors.ErrCodeInvalidLink, "reroute %d is not on link %d", before, linkID)
		}
		r.ParentID = b.ParentID
		for id := range b.linkIDs {
			r.linkIDs[id] = struct{}{}
		}
	}

	r.ID = g.nextRerouteID()
	if before == 0 {
		l.ParentID = r.ID
	} else {
		g.reroutes[before].ParentID = r.ID
	}
	g.reroutes[r.ID] = r
	g.rerouteIndex.Insert(r.ID, r.Bounds())
	g.emit(Event{Kind: EventRerouteAdded, Reroute: r.ID, Link: linkID})
	return r.ID, nil
}

// RemoveReroute removes a waypoint without touching its links. Reroutes and
// links whose parent it was are re-parented to its own parent.
func (g *Graph) RemoveReroute(id RerouteID) error {
	if _, ok := g.reroutes[id]; !ok {
		return errors.New(errors.ErrCodeRerouteNotFound, "reroute %d not found", id)
	}
	g.dropReroute(id)
	return nil
}

// MoveReroute moves a waypoint.
func (g *Graph) MoveReroute(id RerouteID, pos geom.Point) error {
	r, ok := g.reroutes[id]
	if !ok {
		return errors.New(errors.ErrCodeRerouteNotFound, "reroute %d not found", id)
	}
	if r.Pos == pos {
		return nil
	}
	r.Pos = pos
	g.rerouteIndex.Update(id, r.Bounds())
	g.emit(Event{Kind: EventRerouteMoved, Reroute: id})
	return nil
}

// RerouteChain returns the reroutes a link passes through, ordered from
// the output towards the input. A parent loop yields INVALID_LINK.
func (g *Graph) RerouteChain(linkID LinkID) ([]RerouteID, error) {
	l, ok := g.links[linkID]
	if !ok {
		return nil, errors.New(errors.ErrCodeLinkNotFound, "link %d not found", linkID)
	}
	chain, err := g.chainFrom(l.ParentID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(chain)
	return chain, nil
}

func (g *Graph) nextRerouteID() RerouteID {
	for {
		g.state.LastRerouteID++
		id := RerouteID(g.state.LastRerouteID)
		if _, taken := g.reroutes[id]; !taken {
			return id
		}
	}
}

// dropReroute deletes a reroute and splices it out of every chain.
func (g *Graph) dropReroute(id RerouteID) {
	r, ok := g.reroutes[id]
	if !ok {
		return
	}
	for _, other := range g.reroutes {
		if other.ParentID == id {
			other.ParentID = r.ParentID
		}
	}
	for _, l := range g.links {
		if l.ParentID == id {
			l.ParentID = r.ParentID
		}
	}
	delete(g.reroutes, id)
	g.rerouteIndex.Remove(id)
	g.emit(Event{Kind: EventRerouteRemoved, Reroute: id})
}
