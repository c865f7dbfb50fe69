package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodegraph/pkg/workflow"
	"github.com/matzehuels/nodegraph/pkg/workspace"
)

// storeCommand creates the store command and its subcommands.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage documents in the configured store",
		Long: `Read and write workflow documents in the store configured under [store]
in the config file. Documents are canonicalised before they are written.`,
	}
	cmd.AddCommand(c.storePutCommand())
	cmd.AddCommand(c.storeGetCommand())
	cmd.AddCommand(c.storeRemoveCommand())
	cmd.AddCommand(c.storeListCommand())
	return cmd
}

// withWorkspace runs fn against a workspace over the configured store.
func (c *CLI) withWorkspace(ctx context.Context, fn func(ws *workspace.Workspace) error) error {
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	ws, err := c.newWorkspace(s)
	if err != nil {
		s.Close()
		return err
	}
	defer ws.Close()
	return fn(ws)
}

func (c *CLI) storePutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <id> <file>",
		Short: "Store a workflow document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, path := args[0], args[1]
			data, err := readInput(path)
			if err != nil {
				return err
			}
			return c.withWorkspace(cmd.Context(), func(ws *workspace.Workspace) error {
				doc, report, err := ws.Put(cmd.Context(), id, data)
				if err != nil {
					return err
				}
				printReport(id, report)
				printDetail("etag %s", doc.ETag())
				printNextStep("Serve it over HTTP", "nodegraph serve")
				return nil
			})
		},
	}
}

func (c *CLI) storeGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored workflow document",
		Args:  cobra.ExactArgs(1),

		ValidArgsFunction: c.completeStoredIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace.Workspace) error {
				doc, err := ws.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, doc.Bytes())
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete stored workflow documents",
		Args:    cobra.MinimumNArgs(1),

		ValidArgsFunction: c.completeStoredIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace.Workspace) error {
				for _, id := range args {
					if err := ws.Delete(cmd.Context(), id); err != nil {
						return err
					}
					printSuccess("Deleted %s", id)
				}
				return nil
			})
		},
	}
}

func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored workflow documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace.Workspace) error {
				ids, err := ws.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					printInfo("No stored workflows")
					return nil
				}
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					doc, err := ws.Get(cmd.Context(), id)
					if err != nil {
						rows = append(rows, []string{id, "-", "-", err.Error()})
						continue
					}
					var nodes, links int
					_ = doc.View(func(g *workflow.Graph) error {
						nodes, links = len(g.Nodes()), len(g.Links())
						return nil
					})
					rows = append(rows, []string{id, strconv.Itoa(nodes), strconv.Itoa(links), doc.ETag()})
				}
				renderTable(cmd.OutOrStdout(), []string{"ID", "Nodes", "Links", "ETag"}, rows)
				fmt.Fprintf(cmd.OutOrStdout(), "%d workflows\n", len(ids))
				return nil
			})
		},
	}
}
