package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/nodegraph/pkg/geom"
)

// =============================================================================
// Constants
// =============================================================================

// Document versions.
const (
	// Version is written into every root document. Links are tuples and
	// link parent ids travel in extra.linkExtensions.
	Version = 0.4

	// ObjectVersion is the object-link schema used by subgraph definitions.
	// Root documents in this form are accepted on read.
	ObjectVersion = 1
)

// Keys reserved inside Graph.Extra.
const (
	ExtraLinkExtensions = "linkExtensions"
	ExtraReroutes       = "reroutes"
)

// =============================================================================
// Graph - Workflow Document
// =============================================================================

// Graph is the canonical serialization of a workflow graph.
//
// The format is designed for round-trip fidelity: a document produced by
// workflow.Graph.Serialize, configured into a new graph and serialized again
// is byte-identical. Every slice is sorted by id before it is written.
//
// FloatingLinks (links with only one connected end) and Config are not
// interpreted; they are carried through verbatim.
type Graph struct {
	ID            string                     `json:"id,omitempty"`
	Revision      int                        `json:"revision,omitempty"`
	LastNodeID    int64                      `json:"last_node_id"`
	LastLinkID    int64                      `json:"last_link_id"`
	Nodes         []Node                     `json:"nodes"`
	Links         []Link                     `json:"links"`
	FloatingLinks []json.RawMessage          `json:"floatingLinks,omitempty"`
	Groups        []Group                    `json:"groups"`
	Reroutes      []Reroute                  `json:"reroutes,omitempty"`
	Definitions   *Definitions               `json:"definitions,omitempty"`
	State         *State                     `json:"state,omitempty"`
	Config        json.RawMessage            `json:"config,omitempty"`
	Extra         map[string]json.RawMessage `json:"extra"`
	Version       float64                    `json:"version"`
}

// State holds the id counters of a graph. Root documents carry only the
// node and link counters (last_node_id, last_link_id); object-form
// documents carry all four.
type State struct {
	LastGroupID   int64 `json:"lastGroupId"`
	LastNodeID    int64 `json:"lastNodeId"`
	LastLinkID    int64 `json:"lastLinkId"`
	LastRerouteID int64 `json:"lastRerouteId"`
}

// Definitions holds shared definitions referenced by nodes.
type Definitions struct {
	Subgraphs []Subgraph `json:"subgraphs,omitempty"`
}

// =============================================================================
// Node
// =============================================================================

// Node is a serialized node.
//
// A nil Title, Inputs or Outputs means the key was absent and the node
// type's defaults apply. An empty title or slot list is kept as written.
type Node struct {
	ID            NodeID            `json:"id"`
	Type          string            `json:"type"`
	Pos           geom.Point        `json:"pos"`
	Size          geom.Size         `json:"size"`
	Flags         map[string]any    `json:"flags"`
	Order         int               `json:"order"`
	Mode          int               `json:"mode"`
	Title         *string           `json:"title,omitempty"`
	Inputs        []Input           `json:"inputs"`
	Outputs       []Output          `json:"outputs"`
	Properties    map[string]any    `json:"properties"`
	WidgetsValues []json.RawMessage `json:"widgets_values,omitempty"`
	Color         string            `json:"color,omitempty"`
	BgColor       string            `json:"bgcolor,omitempty"`
}

// Input is a serialized input slot. Link is null when unconnected.
type Input struct {
	Name   string     `json:"name"`
	Type   SlotType   `json:"type"`
	Link   *LinkID    `json:"link"`
	Label  string     `json:"label,omitempty"`
	Widget *WidgetRef `json:"widget,omitempty"`
}

// WidgetRef names the widget an input slot was converted from.
type WidgetRef struct {
	Name string `json:"name"`
}

// Output is a serialized output slot.
type Output struct {
	Name  string   `json:"name"`
	Type  SlotType `json:"type"`
	Links []LinkID `json:"links"`
	Label string   `json:"label,omitempty"`
}

// =============================================================================
// Link
// =============================================================================

type linkFields struct {
	ID         LinkID    `json:"id"`
	OriginID   NodeID    `json:"origin_id"`
	OriginSlot int       `json:"origin_slot"`
	TargetID   NodeID    `json:"target_id"`
	TargetSlot int       `json:"target_slot"`
	Type       SlotType  `json:"type"`
	ParentID   RerouteID `json:"parentId,omitempty"`
}

// Link is a serialized link in tuple form:
//
//	[id, origin_id, origin_slot, target_id, target_slot, type]
//
// ParentID is not part of the tuple; root documents carry it in
// extra.linkExtensions. Decoding accepts the tuple or the object form.
type Link linkFields

// LinkObject is a serialized link in object form, used by subgraph
// definitions and version 1 documents.
type LinkObject linkFields

// MarshalJSON encodes the tuple form.
func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.ID, l.OriginID, l.OriginSlot, l.TargetID, l.TargetSlot, l.Type})
}

// UnmarshalJSON decodes the tuple or object form.
func (l *Link) UnmarshalJSON(data []byte) error {
	f, err := decodeLink(data)
	if err != nil {
		return err
	}
	*l = Link(f)
	return nil
}

// MarshalJSON encodes the object form.
func (l LinkObject) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkFields(l))
}

// UnmarshalJSON decodes the tuple or object form.
func (l *LinkObject) UnmarshalJSON(data []byte) error {
	f, err := decodeLink(data)
	if err != nil {
		return err
	}
	*l = LinkObject(f)
	return nil
}

func decodeLink(data []byte) (linkFields, error) {
	var f linkFields
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return f, fmt.Errorf("link: empty value")
	}
	if data[0] == '{' {
		if err := json.Unmarshal(data, &f); err != nil {
			return f, fmt.Errorf("link: %w", err)
		}
		return f, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return f, fmt.Errorf("link: %w", err)
	}
	if len(parts) < 6 {
		return f, fmt.Errorf("link: expected 6 elements, got %d", len(parts))
	}
	fields := []any{&f.ID, &f.OriginID, &f.OriginSlot, &f.TargetID, &f.TargetSlot, &f.Type}
	for i, dst := range fields {
		if err := json.Unmarshal(parts[i], dst); err != nil {
			return f, fmt.Errorf("link element %d: %w", i, err)
		}
	}
	return f, nil
}

// LinkExtension carries the parent reroute of a tuple-form link.
type LinkExtension struct {
	ID       LinkID    `json:"id"`
	ParentID RerouteID `json:"parentId"`
}

// =============================================================================
// Group and Reroute
// =============================================================================

// Group is a serialized group.
type Group struct {
	ID       GroupID        `json:"id"`
	Title    string         `json:"title"`
	Bounding geom.Rect      `json:"bounding"`
	Color    string         `json:"color,omitempty"`
	FontSize float64        `json:"font_size"`
	Flags    map[string]any `json:"flags,omitempty"`
}

// Reroute is a serialized reroute. ParentID points towards the output.
type Reroute struct {
	ID       RerouteID  `json:"id"`
	ParentID RerouteID  `json:"parentId,omitempty"`
	Pos      geom.Point `json:"pos"`
	LinkIDs  []LinkID   `json:"linkIds"`
}

// =============================================================================
// Subgraph
// =============================================================================

// Subgraph is a serialized subgraph definition. Its links use the object
// form and its counters travel in State.
type Subgraph struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	Revision      int                        `json:"revision,omitempty"`
	State         State                      `json:"state"`
	Inputs        []SubgraphIO               `json:"inputs"`
	Outputs       []SubgraphIO               `json:"outputs"`
	InputNode     IONode                     `json:"inputNode"`
	OutputNode    IONode                     `json:"outputNode"`
	Nodes         []Node                     `json:"nodes"`
	Links         []LinkObject               `json:"links"`
	FloatingLinks []json.RawMessage          `json:"floatingLinks,omitempty"`
	Groups        []Group                    `json:"groups"`
	Reroutes      []Reroute                  `json:"reroutes,omitempty"`
	Extra         map[string]json.RawMessage `json:"extra"`
	Version       float64                    `json:"version"`
}

// SubgraphIO is one entry of a subgraph's external interface.
type SubgraphIO struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    SlotType `json:"type"`
	LinkIDs []LinkID `json:"linkIds"`
	Label   string   `json:"label,omitempty"`
}

// IONode positions a subgraph's input or output pseudo-node.
type IONode struct {
	ID       NodeID    `json:"id"`
	Bounding geom.Rect `json:"bounding"`
}
