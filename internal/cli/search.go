package cli

import (
	"github.com/spf13/cobra"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		literal     bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "search <pattern>...",
		Short: "Search the AUR for packages",
		Long: `Search the AUR for packages matching the given patterns.

Patterns are case insensitive regular expressions unless --literal is
given. With --interactive, results are presented in a picker and the
selected packages are cloned.`,
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
			opts.AllowRegex = !literal
			opts.Format = c.formatString

			if interactive {
				return c.interactiveSearch(a, args, opts)
			}
			return a.Search(args, opts)
		},
	}

	cmd.Flags().BoolVar(&c.quiet, "quiet", false, "print package names only")
	cmd.Flags().BoolVar(&literal, "literal", false, "treat patterns as literal strings, not regular expressions")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick packages to clone from the results")
	cmd.Flags().StringVar(&c.searchByFlag, "searchby", "", "search by field (name, name-desc, maintainer, depends, makedepends, optdepends, checkdepends)")
	cmd.Flags().StringVar(&c.formatString, "format", "", "custom output format, e.g. \"{name} {version}\"")
	c.addSortFlags(cmd)

	return cmd
}
