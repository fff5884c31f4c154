package cli

import (
	"github.com/spf13/cobra"
)

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	var (
		recurse bool
		chdir   string
	)

	cmd := &cobra.Command{
		Use:   "update [package]...",
		Short: "Clone or refresh repositories of outdated packages",
		Long: `Check installed packages against the AUR and clone or pull the
repositories of those with a newer AUR version. Arguments restrict the
check to the named packages.`,
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
			opts.Recurse = recurse
			opts.Directory = chdir

			prog := newProgress(c.Logger)
			if err := a.Update(args, opts); err != nil {
				return err
			}
			prog.done("update complete")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recurse", "r", false, "clone AUR dependencies as well")
	cmd.Flags().StringVarP(&chdir, "chdir", "C", "", "change directory before cloning")

	return cmd
}
