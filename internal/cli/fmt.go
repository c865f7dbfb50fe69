package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodegraph/pkg/errors"
	"github.com/matzehuels/nodegraph/pkg/schema"
)

// fmtCommand creates the fmt command.
func (c *CLI) fmtCommand() *cobra.Command {
	var (
		output string
		write  bool
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Rewrite a workflow document in canonical form",
		Long: `Load a workflow document and write it back in canonical form: entities
sorted by id, stale references repaired, deterministic indentation.

Formatting a canonical document reproduces it byte for byte. --yaml writes
a read-only YAML rendering for review instead.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflowFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if write {
				if path == "-" {
					return errors.New(errors.ErrCodeInvalidInput, "--write needs a file, not stdin")
				}
				output = path
			}

			g, report, err := c.loadFile(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, w := range report.Warnings {
				c.Logger.Warn(w, "file", path)
			}

			doc := g.Serialize()
			var data []byte
			if asYAML {
				data, err = schema.MarshalYAML(doc)
			} else {
				data, err = schema.Marshal(doc)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the input file in place")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write YAML instead of JSON")
	cmd.MarkFlagsMutuallyExclusive("write", "output")
	cmd.MarkFlagsMutuallyExclusive("write", "yaml")
	return cmd
}
