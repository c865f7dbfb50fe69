package workflow

import (
	"slices"

	"github.com/google/uuid"
)

// EventKind names a committed mutation.
type EventKind string

const (
	EventNodeAdded       EventKind = "node-added"
	EventNodeRemoved     EventKind = "node-removed"
	EventNodeMoved       EventKind = "node-moved"
	EventNodeResized     EventKind = "node-resized"
	EventModeChanged     EventKind = "mode-changed"
	EventSlotAdded       EventKind = "slot-added"
	EventSlotRemoved     EventKind = "slot-removed"
	EventWidgetChanged   EventKind = "widget-changed"
	EventLinkAdded       EventKind = "link-added"
	EventLinkRemoved     EventKind = "link-removed"
	EventRerouteAdded    EventKind = "reroute-added"
	EventRerouteRemoved  EventKind = "reroute-removed"
	EventRerouteMoved    EventKind = "reroute-moved"
	EventGroupAdded      EventKind = "group-added"
	EventGroupRemoved    EventKind = "group-removed"
	EventGroupChanged    EventKind = "group-changed"
	EventSubgraphChanged EventKind = "subgraph-changed"
	EventConfigured      EventKind = "configured"
	EventCleared         EventKind = "cleared"
)

// Event describes one mutation. Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	Node    NodeID
	Link    LinkID
	Reroute RerouteID
	Group   GroupID
	Dir     Direction
	Slot    int
	Widget  string
	OldMode Mode
	NewMode Mode
}

// ChangeSet is delivered to observers after mutations commit. Outside a
// [Graph.Batch] every mutating call produces its own change set; inside a
// batch all events are delivered together when the outermost batch ends.
type ChangeSet struct {
	Graph   uuid.UUID
	Version uint64
	Events  []Event
}

// Has reports whether the change set contains an event of any of the
// given kinds.
func (cs ChangeSet) Has(kinds ...EventKind) bool {
	return slices.ContainsFunc(cs.Events, func(e Event) bool {
		return slices.Contains(kinds, e.Kind)
	})
}

// Observer receives change notifications. Calls are synchronous and
// happen after the graph is consistent again; observers may read the graph
// but must not mutate it from within GraphChanged.
type Observer interface {
	GraphChanged(cs ChangeSet)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(cs ChangeSet)

// GraphChanged calls f(cs).
func (f ObserverFunc) GraphChanged(cs ChangeSet) { f(cs) }

type subscription struct {
	obs Observer
}

// Subscribe registers an observer and returns a function that removes it.
func (g *Graph) Subscribe(o Observer) (unsubscribe func()) {
	sub := &subscription{obs: o}
	g.observers = append(g.observers, sub)
	return func() {
		g.observers = slices.DeleteFunc(g.observers, func(s *subscription) bool { return s == sub })
	}
}

// Batch runs fn and delivers every event it causes as a single change
// set. Mutations made before fn returns an error are kept; Batch does not
// roll back.
func (g *Graph) Batch(fn func() error) error {
	g.batchDepth++
	defer func() {
		g.batchDepth--
		if g.batchDepth == 0 {
			g.flush()
		}
	}()
	return fn()
}

// Version returns a counter that increases with every committed mutation.
// Derived caches compare it to decide whether to recompute.
func (g *Graph) Version() uint64 { return g.version }

func (g *Graph) emit(e Event) {
	g.version++
	if g.muted > 0 {
		return
	}
	g.pending = append(g.pending, e)
	if g.batchDepth == 0 {
		g.flush()
	}
}

func (g *Graph) flush() {
	if len(g.pending) == 0 {
		return
	}
	cs := ChangeSet{Graph: g.id, Version: g.version, Events: g.pending}
	g.pending = nil
	for _, s := range slices.Clone(g.observers) {
		s.obs.GraphChanged(cs)
	}
}

// silently runs fn without recording events. Used while configuring, which
// reports a single EventConfigured afterwards.
func (g *Graph) silently(fn func()) {
	g.muted++
	defer func() { g.muted-- }()
	fn()
}
