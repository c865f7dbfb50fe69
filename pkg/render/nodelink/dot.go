package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/nodegraph/pkg/render"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node type, mode and widget values to node labels.
	// When false, only the title is shown.
	Detailed bool

	// Groups draws each group as a Graphviz cluster around its member
	// nodes. A node inside several groups joins the first one by id.
	Groups bool
}

// ToDOT converts a workflow graph to Graphviz DOT. The resulting string can
// be rendered with [RenderSVG], [RenderPDF] or [RenderPNG].
//
// Reroutes appear as small points so that links drawn through them keep
// their shape. Bypassed and muted nodes are dashed.
func ToDOT(g *workflow.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	clustered := make(map[workflow.NodeID]bool)
	if opts.Groups {
		for _, gr := range g.Groups() {
			c, err := g.GroupChildren(gr.ID)
			if err != nil || len(c.Nodes) == 0 {
				continue
			}
			fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", gr.ID)
			fmt.Fprintf(&buf, "    label=%q;\n", gr.Title)
			if gr.Color != "" {
				fmt.Fprintf(&buf, "    color=%q;\n", gr.Color)
			}
			for _, id := range c.Nodes {
				if clustered[id] {
					continue
				}
				clustered[id] = true
				n, _ := g.Node(id)
				fmt.Fprintf(&buf, "    %s;\n", nodeStmt(n, opts.Detailed))
			}
			buf.WriteString("  }\n")
		}
	}
	for _, n := range g.Nodes() {
		if !clustered[n.ID()] {
			fmt.Fprintf(&buf, "  %s;\n", nodeStmt(n, opts.Detailed))
		}
	}
	if _, ok := g.Definition(); ok {
		buf.WriteString("  \"in\" [shape=cds, label=\"inputs\"];\n")
		buf.WriteString("  \"out\" [shape=cds, label=\"outputs\"];\n")
	}
	for _, r := range g.Reroutes() {
		fmt.Fprintf(&buf, "  %q [shape=point, width=0.08];\n", rerouteName(r.ID))
	}

	buf.WriteString("\n")
	seen := make(map[string]bool)
	for _, l := range g.Links() {
		hops := []string{endpointName(l.OriginID)}
		chain, err := g.RerouteChain(l.ID)
		if err == nil {
			for _, r := range chain {
				hops = append(hops, rerouteName(r))
			}
		}
		hops = append(hops, endpointName(l.TargetID))

		for i := 1; i < len(hops); i++ {
			last := i == len(hops)-1
			stmt := fmt.Sprintf("%q -> %q", hops[i-1], hops[i])
			if last {
				stmt += fmt.Sprintf(" [label=%q]", workflow.TypeName(l.Type))
			} else {
				stmt += " [arrowhead=none]"
			}
			// Links sharing a reroute chain share its edges.
			if seen[stmt] {
				continue
			}
			seen[stmt] = true
			fmt.Fprintf(&buf, "  %s;\n", stmt)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func endpointName(id workflow.NodeID) string {
	switch id {
	case workflow.SubgraphInputNodeID:
		return "in"
	case workflow.SubgraphOutputNodeID:
		return "out"
	}
	return "n" + id.String()
}

func rerouteName(id workflow.RerouteID) string {
	return "r" + strconv.FormatInt(int64(id), 10)
}

func nodeStmt(n *workflow.Node, detailed bool) string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	switch n.Mode() {
	case workflow.ModeBypass, workflow.ModeNever:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	if n.BgColor != "" && n.Mode() == workflow.ModeAlways {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", n.BgColor))
	}
	return fmt.Sprintf("%q [%s]", endpointName(n.ID()), strings.Join(attrs, ", "))
}

func fmtLabel(n *workflow.Node, detailed bool) string {
	if !detailed {
		return n.Title
	}
	parts := []string{n.Title, "type: " + n.Type}
	if n.Mode() != workflow.ModeAlways {
		parts = append(parts, "mode: "+n.Mode().String())
	}
	for _, w := range n.Widgets() {
		if !w.Serializes() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", w.Name(), w.Value()))
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one
// whose viewBox starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion. A scale of 2.0
// doubles the resolution.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
