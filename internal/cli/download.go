package cli

import (
	"github.com/spf13/cobra"
)

// downloadCommand creates the download command.
func (c *CLI) downloadCommand() *cobra.Command {
	var (
		recurse bool
		chdir   string
	)

	cmd := &cobra.Command{
		Use:   "download <package>...",
		Short: "Download the snapshot tarballs of AUR packages",
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
			opts.Recurse = recurse
			opts.Directory = chdir

			return a.Download(args, opts)
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recurse", "r", false, "download AUR dependencies as well")
	cmd.Flags().StringVarP(&chdir, "chdir", "C", "", "change directory before downloading")

	return cmd
}
