package cli

import (
	"github.com/spf13/cobra"
)

// rawSearchCommand creates the rawsearch command.
func (c *CLI) rawSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "rawsearch <term>...",
		Short:  "Dump the raw RPC response of a search",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
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
			return a.RawSearch(args, opts)
		},
	}

	cmd.Flags().StringVar(&c.searchByFlag, "searchby", "", "search by field")

	return cmd
}

// rawInfoCommand creates the rawinfo command.
func (c *CLI) rawInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "rawinfo <package>...",
		Short:  "Dump the raw RPC response of an info query",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
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
			return a.RawInfo(args, opts)
		},
	}
}
