package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that workflow documents load cleanly",
		Long: `Load each workflow document and report what was accepted and what was
dropped or repaired. Use "-" to read from stdin.

Documents that cannot be decoded always fail. With --strict, documents that
load with warnings fail too.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeWorkflowFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				_, report, err := c.loadFile(cmd.Context(), path)
				if err != nil {
					printError("%s: %v", path, err)
					failed++
					continue
				}
				printReport(path, report)
				if strict && !report.Clean() {
					failed++
				}
			}
			if failed == 0 && len(args) > 1 {
				printSuccess("%d documents valid", len(args))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat load warnings as failures")
	return cmd
}
