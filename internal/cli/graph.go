package cli

import (
	"github.com/spf13/cobra"

	"github.com/jkl1337/auracle/internal/auracle"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph <package>...",
		Short: "Emit the dependency graph of AUR packages",
		Long: `Resolve the transitive dependencies of the named packages and emit
the graph in Graphviz DOT format. An --output path ending in .svg renders
the graph with Graphviz instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := c.newAuracle(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			return a.Graph(cmd.Context(), args, auracle.GraphOptions{Output: output})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of standard output (.svg renders)")

	return cmd
}
