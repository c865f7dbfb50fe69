package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/render/nodelink"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	formats  []string
	detailed bool
	groups   bool
	scale    float64
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := &renderOpts{}
	var formats string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a workflow document as a diagram",
		Long: `Render a workflow document as a node-link diagram through Graphviz.

Links that pass through reroutes are drawn through a point per reroute.
--groups draws groups as clusters around their member nodes.

PDF and PNG output need rsvg-convert from librsvg on the PATH.`,
		Example: `  nodegraph render flux.json
  nodegraph render flux.json -f svg,png --groups -o out/flux
  nodegraph render flux.json -f dot -o -`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflowFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formats)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			if opts.scale <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "--scale must be positive")
			}
			if opts.output == "-" && len(opts.formats) > 1 {
				return errors.New(errors.ErrCodeInvalidInput, "stdout takes a single format")
			}
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&formats, "format", "f", "", "output formats: dot, svg, pdf, png (comma-separated, default svg)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path or base name (\"-\" for stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node type, mode and widget values")
	cmd.Flags().BoolVar(&opts.groups, "groups", false, "draw groups as clusters")
	cmd.Flags().Float64Var(&opts.scale, "scale", 2, "PNG resolution multiplier")
	return cmd
}

// parseFormats parses the --format flag. If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{"dot": true, "svg": true, "pdf": true, "png": true}

func validateFormats(formats []string) error {
	if len(formats) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no output format given")
	}
	for _, f := range formats {
		if !validFormats[f] {
			return errors.New(errors.ErrCodeInvalidInput, "invalid format: %s (must be 'dot', 'svg', 'pdf', or 'png')", f)
		}
	}
	return nil
}

// basePath derives the base output path. Without an output it strips the
// extension from input; a known format extension on output is stripped too.
func basePath(output, input string) string {
	if output == "" {
		if input == "-" {
			return "workflow"
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	clock := startTimer(logger)

	g, report, err := c.loadFile(ctx, input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %s: %s", input, formatCounts(report))
	for _, w := range report.Warnings {
		logger.Warn(w, "file", input)
	}

	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed, Groups: opts.groups})
	if opts.output == "-" {
		data, err := renderDOT(ctx, dot, opts.formats[0], opts.scale)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), "", data)
	}

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if err := renderToFile(ctx, dot, format, path, opts.scale); err != nil {
			return err
		}
		printFile(path)
	}
	clock.done("Rendered workflow", "file", input, "formats", opts.formats)
	return nil
}

func renderToFile(ctx context.Context, dot, format, path string, scale float64) error {
	spin := newSpinner(ctx, progressWriter(os.Stderr), fmt.Sprintf("Rendering %s", format))
	spin.Start()
	data, err := renderDOT(ctx, dot, format, scale)
	spin.Stop()
	if spin.Cancelled() {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", format, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return writeOutput(nil, path, data)
}

// renderDOT dispatches on the output format.
func renderDOT(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return nodelink.RenderSVG(ctx, dot)
	case "pdf":
		return nodelink.RenderPDF(ctx, dot)
	case "png":
		return nodelink.RenderPNG(ctx, dot, scale)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format)
}
