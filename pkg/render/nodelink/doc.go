// Package nodelink exports workflow graphs as Graphviz node-link diagrams.
//
// # Overview
//
// Nodes become rounded boxes, links become labelled arrows and reroutes
// become points the arrows pass through. It is a static view of a
// workflow for documentation and review; canvas geometry lives in the
// parent render package.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true, Groups: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)
//
// # Options
//
//   - Detailed: labels include node type, mode and widget values
//   - Groups: groups are drawn as clusters around their member nodes
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
