package cli

import (
	"github.com/spf13/cobra"
)

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	var showFile string

	cmd := &cobra.Command{
		Use:   "show <package>...",
		Short: "Print a source file of AUR packages",
		Long: `Print a file from the source repository of each named package.
The PKGBUILD is shown unless --file selects another file, for example
.SRCINFO or an install script.`,
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
			opts.ShowFile = showFile

			return a.Show(args, opts)
		},
	}

	cmd.Flags().StringVar(&showFile, "file", "PKGBUILD", "file to fetch from the package repository")

	return cmd
}
