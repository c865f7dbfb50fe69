package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/geom"
	"github.com/matzehuels/nodegraph/pkg/render"
	"github.com/matzehuels/nodegraph/pkg/spatial"
	"github.com/matzehuels/nodegraph/pkg/workflow"
)

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var (
		point     string
		bounds    string
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "List the entities at a point or inside a rectangle",
		Long: `Run a spatial query against a workflow document.

--point x,y reports the top-most node, reroute, group, slot and link under
the point. --bounds x,y,w,h lists every node, reroute, group and link
segment overlapping the rectangle.`,
		Example: `  nodegraph query flux.json --point 120,340
  nodegraph query flux.json --bounds 0,0,1920,1080`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflowFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (point == "") == (bounds == "") {
				return errors.New(errors.ErrCodeInvalidInput, "exactly one of --point or --bounds is required")
			}
			g, _, err := c.loadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var rows [][]string
			if point != "" {
				p, err := geom.ParsePoint(point)
				if err != nil {
					return errors.New(errors.ErrCodeInvalidInput, "--point: %v", err)
				}
				rows = queryPoint(g, c.config().IndexOptions(), p, tolerance)
			} else {
				r, err := geom.ParseRect(bounds)
				if err != nil {
					return errors.New(errors.ErrCodeInvalidInput, "--bounds: %v", err)
				}
				rows = queryBounds(g, c.config().IndexOptions(), r)
			}
			if len(rows) == 0 {
				printInfo("Nothing found")
				return nil
			}
			renderTable(cmd.OutOrStdout(), []string{"Kind", "ID", "Detail"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&point, "point", "", "query point as x,y")
	cmd.Flags().StringVar(&bounds, "bounds", "", "query rectangle as x,y,w,h")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 5, "link hit distance for --point")
	return cmd
}

func nodeDetail(n *workflow.Node) string {
	return fmt.Sprintf("%s (%s) at %g,%g", n.Title, n.Type, n.Pos().X, n.Pos().Y)
}

func queryPoint(g *workflow.Graph, idx spatial.Options, p geom.Point, tol float64) [][]string {
	var rows [][]string
	if n, ok := g.QueryNodeAtPoint(p); ok {
		rows = append(rows, []string{"node", n.ID().String(), nodeDetail(n)})
	}
	if ref, ok := render.SlotAt(g, p); ok {
		rows = append(rows, []string{"slot", ref.Node.String(), fmt.Sprintf("%s %d", ref.Dir, ref.Index)})
	}
	if r, ok := g.QueryRerouteAtPoint(p); ok {
		rows = append(rows, []string{"reroute", strconv.FormatInt(int64(r.ID), 10), fmt.Sprintf("%d links", len(r.LinkIDs()))})
	}
	if gr, ok := g.GroupAtPoint(p); ok {
		rows = append(rows, []string{"group", strconv.FormatInt(int64(gr.ID), 10), gr.Title})
	}
	segs := render.NewSegmentCache(g, idx)
	defer segs.Close()
	if seg, ok := segs.SegmentAt(p, tol); ok {
		rows = append(rows, []string{"link", strconv.FormatInt(int64(seg.Link), 10), segs.Tooltip(p, tol)})
	}
	return rows
}

func queryBounds(g *workflow.Graph, idx spatial.Options, r geom.Rect) [][]string {
	var rows [][]string
	for _, n := range g.QueryNodesInBounds(r) {
		rows = append(rows, []string{"node", n.ID().String(), nodeDetail(n)})
	}
	for _, rr := range g.QueryReroutesInBounds(r) {
		rows = append(rows, []string{"reroute", strconv.FormatInt(int64(rr.ID), 10), fmt.Sprintf("%d links", len(rr.LinkIDs()))})
	}
	for _, gr := range g.Groups() {
		if r.Overlaps(gr.Bounding()) {
			rows = append(rows, []string{"group", strconv.FormatInt(int64(gr.ID), 10), gr.Title})
		}
	}
	segs := render.NewSegmentCache(g, idx)
	defer segs.Close()
	for _, seg := range segs.InBounds(r) {
		rows = append(rows, []string{"link", strconv.FormatInt(int64(seg.Link), 10), fmt.Sprintf("%s hop %d", workflow.TypeName(seg.Type), seg.Hop)})
	}
	return rows
}
