// Package config handles esm configuration.
//
// Settings are layered: the TOML config file, then ESA_* environment
// variables, then command-line flags. A .esa_cli file left in the workspace
// by the older tool fills in credentials nothing else supplied. The result
// is built once at startup and passed explicitly to the components that
// need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
)

// Environment variables read by ApplyEnv.
const (
	EnvToken = "ESA_API_KEY"
	EnvTeam  = "ESA_TEAM"
	EnvUser  = "ESA_USER"
)

// LegacyFile is the per-workspace credentials file of the older tool.
const LegacyFile = ".esa_cli"

var (
	// ErrMissingCredential indicates that team, user, or token is unset.
	ErrMissingCredential = errors.New("missing esa credential")

	// ErrInvalid indicates a setting with a malformed value.
	ErrInvalid = errors.New("invalid configuration")
)

var teamPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)

// Config represents the esm configuration.
type Config struct {
	// Team is the esa team name (<team>.esa.io).
	Team string `toml:"team"`

	// User is the screen name whose posts fetch selects.
	User string `toml:"user"`

	// Token is a personal access token. Prefer ESA_API_KEY over storing it here.
	Token string `toml:"token"`

	// BaseURL overrides the API root, e.g. for a proxy.
	BaseURL string `toml:"base_url"`

	// Root is the workspace directory posts are mirrored into.
	// Defaults to the current directory.
	Root string `toml:"root"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered code blocks.
	CodeTheme string `toml:"code_theme"`
}

// Load loads the configuration from the default location.
// Returns an empty config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/esm/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if xdgPath, err := XDGPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "esm", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/esm/config.toml).
func XDGPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "esm", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "esm", "config.toml"), nil
}

// ApplyEnv overlays ESA_* environment variables onto c. Unset or blank
// variables leave the file value in place.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvTeam)); v != "" {
		c.Team = v
	}
	if v := strings.TrimSpace(getenv(EnvUser)); v != "" {
		c.User = v
	}
}

type legacyFile struct {
	Esa struct {
		APIKey string `toml:"api_key"`
		Team   string `toml:"team"`
		User   string `toml:"user"`
	} `toml:"esa"`
}

// ApplyLegacy fills credentials still unset from root/.esa_cli. A missing
// file is not an error.
func (c *Config) ApplyLegacy(root string) error {
	path := filepath.Join(root, LegacyFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var legacy legacyFile
	if _, err := toml.DecodeFile(path, &legacy); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if c.Token == "" {
		c.Token = strings.TrimSpace(legacy.Esa.APIKey)
	}
	if c.Team == "" {
		c.Team = strings.TrimSpace(legacy.Esa.Team)
	}
	if c.User == "" {
		c.User = strings.TrimSpace(legacy.Esa.User)
	}
	return nil
}

// Flags holds the command-line overrides bound by BindFlags.
type Flags struct {
	fs   *pflag.FlagSet
	team string
	user string
	root string
}

// BindFlags registers --team, --user and --root on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.team, "team", "", "esa team name (overrides ESA_TEAM and config)")
	fs.StringVar(&f.user, "user", "", "esa screen name (overrides ESA_USER and config)")
	fs.StringVar(&f.root, "root", "", "workspace directory (defaults to config root, then current directory)")
	return f
}

// ApplyFlags overlays flags that were set on the command line.
func (c *Config) ApplyFlags(f *Flags) {
	if f == nil {
		return
	}
	if f.fs.Changed("team") {
		c.Team = strings.TrimSpace(f.team)
	}
	if f.fs.Changed("user") {
		c.User = strings.TrimSpace(f.user)
	}
	if f.fs.Changed("root") {
		c.Root = strings.TrimSpace(f.root)
	}
}

// Options controls Resolve.
type Options struct {
	// Path is an explicit config file, which must exist. Empty means the
	// default location, which may be absent.
	Path string

	Flags *Flags

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Resolve builds the effective configuration from every layer and makes
// Root absolute.
func Resolve(opts Options) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if opts.Path != "" {
		cfg, err = LoadFrom(opts.Path)
	} else {
		cfg, err = Load()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.ApplyEnv(getenv)
	cfg.ApplyFlags(opts.Flags)

	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(expandHome(cfg.Root))
	if err != nil {
		return nil, fmt.Errorf("%w: root %s: %w", ErrInvalid, cfg.Root, err)
	}
	cfg.Root = root

	if err := cfg.ApplyLegacy(cfg.Root); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks the settings remote commands need.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Team, validation.Required),
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.Token, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingCredential, err)
	}

	err = validation.ValidateStruct(c,
		validation.Field(&c.Team, validation.Match(teamPattern).Error("must be an esa team subdomain")),
		validation.Field(&c.BaseURL, is.URL),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
