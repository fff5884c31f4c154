package cli

import (
	"github.com/spf13/cobra"
)

// buildorderCommand creates the buildorder command.
func (c *CLI) buildorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buildorder <package>...",
		Short: "Print packages and dependencies in build order",
		Long: `Resolve the transitive dependencies of the named packages and print
them in the order they must be built, annotated with where each package
can be obtained from and whether it is already satisfied.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := c.newAuracle(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			opts, err := c.commandOptions()
			if err != nil {
				return err
			}
			return a.BuildOrder(args, opts)
		},
	}
}
