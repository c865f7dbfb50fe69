package cli

import (
	"io"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodegraph/pkg/spatial"
	"github.com/matzehuels/nodegraph/pkg/workspace"
)

func newTestInspect(t *testing.T) InspectModel {
	t.Helper()
	ws := workspace.New(nil, workspace.Options{Logger: log.New(io.Discard)})
	g, _, err := ws.Decode(t.Context(), "flow", []byte(testDoc))
	if err != nil {
		t.Fatal(err)
	}
	m := NewInspectModel(g, spatial.Options{})
	t.Cleanup(m.Close)
	return m
}

func press(m InspectModel, keys ...string) InspectModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(InspectModel)
	}
	return m
}

func TestInspectFramesGraph(t *testing.T) {
	m := newTestInspect(t)
	if got := len(m.Visible()); got != 2 {
		t.Fatalf("visible = %d, want 2", got)
	}
	if m.links != 1 || m.routes != 1 {
		t.Errorf("links, reroutes = %d, %d; want 1, 1", m.links, m.routes)
	}
	view := m.View()
	for _, want := range []string{"LoadImage", "PreviewImage", "2 nodes · 1 links · 1 reroutes"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestInspectPanAndZoom(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		wantIDs  []string
		wantZoom float64
	}{
		{"pan right", []string{"l", "l", "l"}, []string{"2"}, 1},
		{"pan left", []string{"h", "h", "h", "h", "h"}, nil, 1},
		{"pan back", []string{"l", "l", "l", "h", "h", "h"}, []string{"1", "2"}, 1},
		{"zoom in", []string{"+"}, nil, 2},
		{"zoom clamps", []string{"-", "-", "-", "-", "-"}, []string{"1", "2"}, minZoom},
		{"reset", []string{"l", "l", "l", "+", "0"}, []string{"1", "2"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(newTestInspect(t), tt.keys...)
			if m.Zoom != tt.wantZoom {
				t.Errorf("zoom = %g, want %g", m.Zoom, tt.wantZoom)
			}
			if tt.wantIDs == nil {
				return
			}
			var ids []string
			for _, n := range m.Visible() {
				ids = append(ids, n.ID().String())
			}
			slices.Sort(ids)
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("visible = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestInspectSelection(t *testing.T) {
	m := newTestInspect(t)
	n, ok := m.Selected()
	if !ok {
		t.Fatal("expected a selection")
	}
	first := n.ID()

	m = press(m, "tab")
	n, _ = m.Selected()
	if n.ID() == first {
		t.Error("tab should move the selection")
	}
	second := n.ID()

	// The selection follows its node while the viewport moves.
	m = press(m, "enter")
	n, ok = m.Selected()
	if !ok || n.ID() != second {
		t.Errorf("selection after centring = %v, want %v", n, second)
	}

	m = press(m, "tab")
	n, _ = m.Selected()
	if n.ID() != first {
		t.Error("tab should wrap around")
	}
}

func TestInspectQuit(t *testing.T) {
	m := newTestInspect(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
