package cli

import (
	"github.com/spf13/cobra"
)

// cloneCommand creates the clone command.
func (c *CLI) cloneCommand() *cobra.Command {
	var (
		recurse bool
		chdir   string
	)

	cmd := &cobra.Command{
		Use:   "clone <package>...",
		Short: "Clone or update the git repositories of AUR packages",
		Long: `Clone the git repository of each named package, or pull when a clone
already exists in the target directory. With --recurse, AUR dependencies
are cloned as well.`,
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
			opts.Recurse = recurse
			opts.Directory = chdir

			prog := newProgress(c.Logger)
			if err := a.Clone(args, opts); err != nil {
				return err
			}
			prog.done("clone complete")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recurse", "r", false, "clone AUR dependencies as well")
	cmd.Flags().StringVarP(&chdir, "chdir", "C", "", "change directory before cloning")

	return cmd
}
