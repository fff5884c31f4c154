package cli

import (
	"github.com/spf13/cobra"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <package>...",
		Short: "Show detailed information about AUR packages",
		Args:  cobra.MinimumNArgs(1),
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
			opts.Format = c.formatString

			return a.Info(args, opts)
		},
	}

	cmd.Flags().StringVar(&c.formatString, "format", "", "custom output format, e.g. \"{name} {version}\"")
	c.addSortFlags(cmd)

	return cmd
}
