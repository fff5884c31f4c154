// Package config loads the auracle configuration file.
//
// The file lives at $XDG_CONFIG_HOME/auracle/config.toml (falling back to
// ~/.config). A missing file yields the defaults; command line flags
// override anything set here.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jkl1337/auracle/pkg/errors"
)

// Defaults mirrored by the command line flag defaults.
const (
	DefaultBaseURL        = "https://aur.archlinux.org"
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxConnections = 5
	DefaultSearchBy       = "name-desc"
	DefaultSort           = "name"
)

// Config is the merged configuration for one invocation.
type Config struct {
	BaseURL        string `toml:"baseurl"`
	PacmanConfig   string `toml:"pacman_config"`
	ConnectTimeout int    `toml:"connect_timeout_seconds"`
	MaxConnections int    `toml:"max_connections"`
	Color          string `toml:"color"`
	SearchBy       string `toml:"search_by"`
	Sort           string `toml:"sort"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		ConnectTimeout: int(DefaultConnectTimeout / time.Second),
		MaxConnections: DefaultMaxConnections,
		Color:          "auto",
		SearchBy:       DefaultSearchBy,
		Sort:           DefaultSort,
	}
}

// Path returns the default config file location, honoring XDG_CONFIG_HOME.
func Path() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "auracle", "config.toml")
}

// Load reads the config file at path, or the default location when path is
// empty. A missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if cfg.ConnectTimeout < 0 {
		return cfg, errors.New(errors.ErrCodeInvalidInput, "connect_timeout_seconds must not be negative")
	}
	if cfg.MaxConnections < 0 {
		return cfg, errors.New(errors.ErrCodeInvalidInput, "max_connections must not be negative")
	}
	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return cfg, errors.New(errors.ErrCodeInvalidInput, "color must be auto, always or never, got %q", cfg.Color)
	}
	return cfg, nil
}
