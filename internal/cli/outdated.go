package cli

import (
	"github.com/spf13/cobra"
)

// outdatedCommand creates the outdated command.
func (c *CLI) outdatedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outdated [package]...",
		Short: "List installed packages with a newer version in the AUR",
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
			return a.Outdated(args, opts)
		},
	}

	cmd.Flags().BoolVar(&c.quiet, "quiet", false, "print package names only")

	return cmd
}
