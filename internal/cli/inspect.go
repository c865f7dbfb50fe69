package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Browse a workflow interactively",
		Long: `Open a terminal viewport over a workflow document. Panning and zooming
rerun the node, reroute and link queries for the visible rectangle.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflowFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, report, err := c.loadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, w := range report.Warnings {
				c.Logger.Warn(w, "file", args[0])
			}

			m := NewInspectModel(g, c.config().IndexOptions())
			defer m.Close()

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}
