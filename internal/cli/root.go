// Package cli implements the command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/config"
	"github.com/aidanlsb/esm/internal/ui"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	configFlags *config.Flags

	// Resolved values
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "esm",
	Short: "esm - a local mirror of your esa.io posts",
	Long: `esm keeps esa.io posts as plain markdown files with a TOML header.

Each post lives at <category>/<name>.md under the workspace root. A post
that has never been pushed carries no number; the first push creates it on
esa and records the number, later pushes update it. Fetch always replaces
the local file with the remote copy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger()

		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}
		if skipsConfig(cmd) {
			return nil
		}

		var err error
		cfg, err = config.Resolve(config.Options{Path: configPath, Flags: configFlags})
		if err != nil {
			return handleError(ErrConfigInvalid, err, "Check the config file or pass --config")
		}
		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)

		logger.Debug().Str("root", cfg.Root).Str("team", cfg.Team).Str("user", cfg.User).Msg("configuration resolved")
		return nil
	},
}

// Execute runs the CLI. Interrupts cancel the command's context, aborting
// whichever remote call is in flight.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log diagnostics to stderr")
	configFlags = config.BindFlags(rootCmd.PersistentFlags())
}

// newLogger writes diagnostics to stderr: human-readable on a terminal,
// JSON lines in --json mode.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	if jsonOutput {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		TimeFormat: "15:04:05",
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// getRoot returns the resolved workspace root.
func getRoot() string {
	return cfg.Root
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	return cfg
}
