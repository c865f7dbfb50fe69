package cli

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/render"
	"github.com/matzehuels/nodegraph/pkg/spatial"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	minimapStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
)

const (
	minZoom      = 0.125
	maxZoom      = 8
	panFraction  = 0.25
	minimapCols  = 40
	minimapRows  = 12
	viewportRows = 10
)

// =============================================================================
// InspectModel - Interactive viewport over a workflow
// =============================================================================

// InspectModel is the bubbletea model behind the inspect command. It keeps
// a viewport rectangle in graph space and lists what the spatial indexes
// report inside it.
type InspectModel struct {
	Graph    *workflow.Graph
	Viewport geom.Rect
	Zoom     float64
	Cursor   int
	Height   int

	segs    *render.SegmentCache
	base    geom.Size
	visible []*workflow.Node
	links   int
	routes  int
}

// NewInspectModel creates a model whose viewport frames the whole graph.
func NewInspectModel(g *workflow.Graph, idx spatial.Options) InspectModel {
	bounds := g.Bounds()
	if bounds.Empty() {
		bounds = geom.R(0, 0, 1280, 720)
	}
	m := InspectModel{
		Graph:    g,
		Viewport: bounds,
		Zoom:     1,
		Height:   viewportRows,
		segs:     render.NewSegmentCache(g, idx),
		base:     bounds.Size(),
	}
	m.refresh()
	return m
}

// Close releases the link segment cache.
func (m InspectModel) Close() {
	if m.segs != nil {
		m.segs.Close()
	}
}

// Visible returns the nodes inside the viewport in index order.
func (m InspectModel) Visible() []*workflow.Node { return m.visible }

// Selected returns the node under the cursor.
func (m InspectModel) Selected() (*workflow.Node, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.visible) {
		return nil, false
	}
	return m.visible[m.Cursor], true
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		dx := m.Viewport.W * panFraction
		dy := m.Viewport.H * panFraction
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.Viewport = m.Viewport.Translate(-dx, 0)
		case "right", "l":
			m.Viewport = m.Viewport.Translate(dx, 0)
		case "up", "k":
			m.Viewport = m.Viewport.Translate(0, -dy)
		case "down", "j":
			m.Viewport = m.Viewport.Translate(0, dy)
		case "+", "=":
			m.setZoom(m.Zoom * 2)
		case "-", "_":
			m.setZoom(m.Zoom / 2)
		case "0":
			m.Viewport = m.Graph.Bounds()
			m.Zoom = 1
			if m.Viewport.Empty() {
				m.Viewport = geom.RectAt(geom.Point{}, m.base)
			}
		case "tab":
			if len(m.visible) > 0 {
				m.Cursor = (m.Cursor + 1) % len(m.visible)
			}
			return m, nil
		case "shift+tab":
			if len(m.visible) > 0 {
				m.Cursor = (m.Cursor + len(m.visible) - 1) % len(m.visible)
			}
			return m, nil
		case "enter":
			if n, ok := m.Selected(); ok {
				m.centreOn(n.Bounding().Centre())
			}
		default:
			return m, nil
		}
		m.refresh()
	case tea.WindowSizeMsg:
		m.Height = msg.Height - minimapRows - 10
		if m.Height < 3 {
			m.Height = 3
		}
	}
	return m, nil
}

// setZoom scales the viewport around its centre.
func (m *InspectModel) setZoom(z float64) {
	z = math.Max(minZoom, math.Min(maxZoom, z))
	c := m.Viewport.Centre()
	m.Zoom = z
	w, h := m.base.W/z, m.base.H/z
	m.Viewport = geom.R(c.X-w/2, c.Y-h/2, w, h)
}

func (m *InspectModel) centreOn(p geom.Point) {
	c := m.Viewport.Centre()
	m.Viewport = m.Viewport.Translate(p.X-c.X, p.Y-c.Y)
}

// refresh reruns the viewport queries and keeps the cursor on the same
// node when it is still visible.
func (m *InspectModel) refresh() {
	var current workflow.NodeID
	prev, hadSelection := m.Selected()
	if hadSelection {
		current = prev.ID()
	}
	m.visible = m.Graph.QueryNodesInBounds(m.Viewport)
	m.routes = len(m.Graph.QueryReroutesInBounds(m.Viewport))

	seen := make(map[workflow.LinkID]bool)
	for _, seg := range m.segs.InBounds(m.Viewport) {
		seen[seg.Link] = true
	}
	m.links = len(seen)

	m.Cursor = 0
	if hadSelection {
		for i, n := range m.visible {
			if n.ID() == current {
				m.Cursor = i
				break
			}
		}
	}
}

func (m InspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Inspect Workflow"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←↓↑→/hjkl pan  +/- zoom  0 reset  tab select  ⏎ centre  q quit"))
	b.WriteString("\n\n")

	v := m.Viewport
	b.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		StyleDim.Render("viewport"), StyleValue.Render(fmt.Sprintf("%.0f,%.0f %.0f×%.0f", v.X, v.Y, v.W, v.H)),
		StyleDim.Render("zoom"), StyleValue.Render(fmt.Sprintf("%gx", m.Zoom))))
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d nodes · %d links · %d reroutes visible", len(m.visible), m.links, m.routes)))
	b.WriteString("\n")

	b.WriteString(minimapStyle.Render(m.minimap()))
	b.WriteString("\n")

	if len(m.visible) == 0 {
		b.WriteString(listDimStyle.Render("  nothing in view"))
		return b.String()
	}

	offset := 0
	if m.Cursor >= m.Height {
		offset = m.Cursor - m.Height + 1
	}
	end := min(offset+m.Height, len(m.visible))

	rows := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		n := m.visible[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, n.ID().String(), n.Title, n.Type, n.Mode().String(),
			fmt.Sprintf("%.0f,%.0f", n.Pos().X, n.Pos().Y)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Title", "Type", "Mode", "Pos").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if offset+row == m.Cursor {
				return listSelectedStyle
			}
			if col == 4 && m.visible[offset+row].Mode() != workflow.ModeAlways {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.visible))))
	return b.String()
}

// minimap draws every node as a cell of a coarse grid over the graph
// bounds, with the viewport outlined.
func (m InspectModel) minimap() string {
	world := m.Graph.Bounds().Union(m.Viewport)
	if world.Empty() {
		return strings.Repeat(" ", minimapCols)
	}
	grid := make([][]rune, minimapRows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", minimapCols))
	}
	cell := func(p geom.Point) (int, int) {
		c := int((p.X - world.X) / world.W * (minimapCols - 1))
		r := int((p.Y - world.Y) / world.H * (minimapRows - 1))
		return max(0, min(minimapCols-1, c)), max(0, min(minimapRows-1, r))
	}

	c0, r0 := cell(m.Viewport.Pos())
	c1, r1 := cell(geom.Pt(m.Viewport.Right(), m.Viewport.Bottom()))
	for c := c0; c <= c1; c++ {
		grid[r0][c], grid[r1][c] = '·', '·'
	}
	for r := r0; r <= r1; r++ {
		grid[r][c0], grid[r][c1] = '·', '·'
	}
	for _, n := range m.Graph.Nodes() {
		c, r := cell(n.Bounding().Centre())
		grid[r][c] = '■'
	}
	if n, ok := m.Selected(); ok {
		c, r := cell(n.Bounding().Centre())
		grid[r][c] = '◆'
	}

	lines := make([]string, len(grid))
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}
