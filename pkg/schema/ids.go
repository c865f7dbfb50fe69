package schema

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Identifiers
// =============================================================================

// NodeID identifies a node within one graph. Documents use either integers
// (editor-assigned, monotonically increasing) or strings (UUIDs), so NodeID
// holds one or the other. The zero value means "unassigned".
//
// NodeID is comparable and can be used as a map key.
type NodeID struct {
	n     int64
	s     string
	isStr bool
}

// Reserved node ids.
var (
	// SubgraphInputNodeID is the pseudo-node that exposes a subgraph's inputs.
	SubgraphInputNodeID = IntID(-10)
	// SubgraphOutputNodeID is the pseudo-node that collects a subgraph's outputs.
	SubgraphOutputNodeID = IntID(-20)
)

// IntID returns an integer node id.
func IntID(n int64) NodeID { return NodeID{n: n} }

// StringID returns a string node id. The empty string yields the zero id.
func StringID(s string) NodeID {
	if s == "" {
		return NodeID{}
	}
	return NodeID{s: s, isStr: true}
}

// IsZero reports whether the id is unassigned. Integer 0 is never assigned
// by a graph, so it doubles as "unassigned".
func (id NodeID) IsZero() bool { return !id.isStr && id.n == 0 }

// IsString reports whether the id is a string id.
func (id NodeID) IsString() bool { return id.isStr }

// Int returns the integer value and whether the id is an integer id.
func (id NodeID) Int() (int64, bool) { return id.n, !id.isStr }

// String formats the id for logs and keys.
func (id NodeID) String() string {
	if id.isStr {
		return id.s
	}
	return strconv.FormatInt(id.n, 10)
}

// Compare orders integer ids numerically before string ids, and string ids
// lexically.
func (id NodeID) Compare(o NodeID) int {
	switch {
	case id.isStr && o.isStr:
		return cmp.Compare(id.s, o.s)
	case id.isStr:
		return 1
	case o.isStr:
		return -1
	}
	return cmp.Compare(id.n, o.n)
}

// ParseNodeID parses an integer if s looks like one, and otherwise treats s
// as a string id.
func ParseNodeID(s string) NodeID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntID(n)
	}
	return StringID(s)
}

// MarshalJSON encodes integer ids as numbers and string ids as strings.
func (id NodeID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.s)
	}
	return []byte(strconv.FormatInt(id.n, 10)), nil
}

// UnmarshalJSON accepts a number or a string.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var f json.Number
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	n, err := f.Int64()
	if err != nil {
		return fmt.Errorf("node id %s: %w", f, err)
	}
	*id = IntID(n)
	return nil
}

// LinkID identifies a link within one graph.
type LinkID int64

// RerouteID identifies a reroute within one graph. Zero means "none".
type RerouteID int64

// GroupID identifies a group within one graph.
type GroupID int64

// =============================================================================
// Slot types
// =============================================================================

// SlotType is a slot's data type name, e.g. "IMAGE", "INT,FLOAT" or "*".
//
// Some documents carry numeric event types (-1). Those decode to their
// decimal text and are written back as numbers. A string type that reads as
// a number, such as "5", is held behind QuotedTypePrefix so that it stays a
// string when written.
type SlotType string

// QuotedTypePrefix marks a string type whose text would otherwise be
// written as a JSON number.
const QuotedTypePrefix = "\x00"

// MarshalJSON writes numeric type names as JSON numbers.
func (t SlotType) MarshalJSON() ([]byte, error) {
	s := string(t)
	if rest, ok := strings.CutPrefix(s, QuotedTypePrefix); ok {
		return json.Marshal(rest)
	}
	if isNumberText(s) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

// UnmarshalJSON accepts a string, a number or null.
func (t *SlotType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if isNumberText(s) || strings.HasPrefix(s, QuotedTypePrefix) {
			s = QuotedTypePrefix + s
		}
		*t = SlotType(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("slot type: %w", err)
	}
	*t = SlotType(n.String())
	return nil
}

func isNumberText(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	if c := s[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(s))
}
