// Package cli implements the auracle command-line interface.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jkl1337/auracle/internal/auracle"
	"github.com/jkl1337/auracle/internal/config"
	"github.com/jkl1337/auracle/internal/format"
	"github.com/jkl1337/auracle/internal/pacman"
	"github.com/jkl1337/auracle/pkg/aur"
	"github.com/jkl1337/auracle/pkg/buildinfo"
)

// appName is the application name used for directories and display.
const appName = "auracle"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfg config.Config

	// persistent flag values, merged into cfg before each run
	configPath   string
	baseURL      string
	pacmanConf   string
	connectSecs  int
	maxConns     int
	color        string
	quiet        bool
	formatString string
	searchByFlag string
	sortField    string
	rsortField   string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Auracle queries and manages packages from the Arch User Repository",
		Long:         `Auracle is a flexible client for the AUR: it searches, inspects and clones packages, checks installed packages for updates and resolves build ordering of dependency chains.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to config file")
	pf.StringVar(&c.baseURL, "baseurl", config.DefaultBaseURL, "AUR base URL")
	pf.StringVar(&c.pacmanConf, "pacman-config", pacman.DefaultConf, "pacman configuration file")
	pf.IntVar(&c.connectSecs, "connect-timeout", int(config.DefaultConnectTimeout/time.Second), "connection timeout in seconds")
	pf.IntVar(&c.maxConns, "max-connections", config.DefaultMaxConnections, "maximum concurrent connections")
	pf.StringVar(&c.color, "color", "auto", "colorize output (auto, always, never)")

	root.AddCommand(c.searchCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.cloneCommand())
	root.AddCommand(c.downloadCommand())
	root.AddCommand(c.buildorderCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.outdatedCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.rawSearchCommand())
	root.AddCommand(c.rawInfoCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig merges the config file with any persistent flags the user set
// explicitly, flags winning, and applies the color mode.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("baseurl") || cfg.BaseURL == "" {
		cfg.BaseURL = c.baseURL
	}
	if flags.Changed("pacman-config") || cfg.PacmanConfig == "" {
		cfg.PacmanConfig = c.pacmanConf
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = c.connectSecs
	}
	if flags.Changed("max-connections") {
		cfg.MaxConnections = c.maxConns
	}
	if flags.Changed("color") {
		cfg.Color = c.color
	}
	c.cfg = cfg

	switch cfg.Color {
	case "never":
		format.EnableColor(false)
	case "always":
		// lipgloss probes the terminal; force color through for pipes.
		os.Setenv("CLICOLOR_FORCE", "1")
		format.EnableColor(true)
	default:
		format.EnableColor(true)
	}
	return nil
}

// newAuracle assembles the dispatcher, the pacman database and the command
// executor. The returned cleanup aborts outstanding requests and releases
// connections.
func (c *CLI) newAuracle(cmd *cobra.Command) (*auracle.Auracle, func(), error) {
	pac, err := pacman.NewFromConfig(c.cfg.PacmanConfig)
	if err != nil {
		return nil, nil, err
	}

	client := aur.New(cmd.Context(), aur.Options{
		BaseURL:        c.cfg.BaseURL,
		UserAgent:      appName + "/" + buildinfo.Version,
		ConnectTimeout: time.Duration(c.cfg.ConnectTimeout) * time.Second,
		MaxConnections: c.cfg.MaxConnections,
	})

	a := auracle.New(auracle.Options{
		AUR:    client,
		Pacman: pac,
		Out:    os.Stdout,
		Logger: c.Logger,
	})
	return a, client.Close, nil
}

// commandOptions resolves the per-command flags shared across operations.
func (c *CLI) commandOptions() (auracle.CommandOptions, error) {
	opts := auracle.CommandOptions{Quiet: c.quiet}

	searchBy := c.cfg.SearchBy
	if c.searchByFlag != "" {
		searchBy = c.searchByFlag
	}
	by, err := aur.ParseSearchBy(searchBy)
	if err != nil {
		return opts, err
	}
	opts.SearchBy = by

	field, order := c.cfg.Sort, auracle.OrderAsc
	if c.sortField != "" {
		field = c.sortField
	}
	if c.rsortField != "" {
		field, order = c.rsortField, auracle.OrderDesc
	}
	sorter, err := auracle.MakePackageSorter(field, order)
	if err != nil {
		return opts, err
	}
	opts.Sorter = sorter

	return opts, nil
}

// addSortFlags registers the sorting flags shared by listing commands.
func (c *CLI) addSortFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.sortField, "sort", "", "sort results ascending by field (name, popularity, votes, firstsubmitted, lastmodified)")
	cmd.Flags().StringVar(&c.rsortField, "rsort", "", "sort results descending by field")
}
