package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodegraph/pkg/workspace"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for nodegraph.

Besides commands and flags, completions offer workflow files for document
arguments and stored document ids for the store subcommands.

  $ source <(nodegraph completion bash)
  $ nodegraph completion zsh > "${fpath[1]}/_nodegraph"
  $ nodegraph completion fish > ~/.config/fish/completions/nodegraph.fish
  PS> nodegraph completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeWorkflowFiles offers JSON files for document arguments.
func completeWorkflowFiles(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeStoredIDs offers the ids of stored documents for the first
// argument.
func (c *CLI) completeStoredIDs(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if c.cfg == nil {
		if err := c.setup(cmd, args); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
	}
	var ids []string
	err := c.withWorkspace(cmd.Context(), func(ws *workspace.Workspace) error {
		var err error
		ids, err = ws.List(cmd.Context())
		return err
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
