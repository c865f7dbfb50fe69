package workflow

import (
	"strings"

	"github.com/matzehuels/nodegraph/pkg/schema"
)

// Identifier types are shared with the wire format.
type (
	NodeID    = schema.NodeID
	LinkID    = schema.LinkID
	RerouteID = schema.RerouteID
	GroupID   = schema.GroupID
)

// IntID returns an integer node id.
func IntID(n int64) NodeID { return schema.IntID(n) }

// StringID returns a string (UUID) node id.
func StringID(s string) NodeID { return schema.StringID(s) }

// Reserved node ids for the pseudo-nodes that expose a subgraph's inputs
// and outputs inside its definition.
var (
	SubgraphInputNodeID  = schema.SubgraphInputNodeID
	SubgraphOutputNodeID = schema.SubgraphOutputNodeID
)

// TypeName returns a slot type as it should be shown to people. Loaded
// string types that read as numbers carry a marker that is stripped here.
func TypeName(t string) string {
	return strings.TrimPrefix(t, schema.QuotedTypePrefix)
}

// MaxNestedSubgraphs bounds how deep subgraph nodes may nest inside each
// other's definitions.
const MaxNestedSubgraphs = 1000

// Layout constants shared with the render-support layer. Node positions
// refer to the top-left corner of the body; the title bar sits above it.
const (
	NodeTitleHeight  = 30
	NodeSlotHeight   = 20
	NodeWidgetHeight = 20
	NodeMinWidth     = 140
	RerouteRadius    = 10
	GroupFontSize    = 24
)

// Mode controls whether a node takes part in execution.
type Mode int

const (
	ModeAlways    Mode = 0
	ModeOnEvent   Mode = 1
	ModeNever     Mode = 2
	ModeOnTrigger Mode = 3
	ModeBypass    Mode = 4
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeAlways:
		return "always"
	case ModeOnEvent:
		return "on_event"
	case ModeNever:
		return "never"
	case ModeOnTrigger:
		return "on_trigger"
	case ModeBypass:
		return "bypass"
	}
	return "unknown"
}

// Direction distinguishes input slots from output slots.
type Direction int

const (
	DirInput Direction = iota + 1
	DirOutput
)

func (d Direction) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// SlotRef addresses one slot of one node.
type SlotRef struct {
	Node  NodeID
	Dir   Direction
	Index int
}

// In returns a reference to input slot i of node id.
func In(id NodeID, i int) SlotRef { return SlotRef{Node: id, Dir: DirInput, Index: i} }

// Out returns a reference to output slot i of node id.
func Out(id NodeID, i int) SlotRef { return SlotRef{Node: id, Dir: DirOutput, Index: i} }
