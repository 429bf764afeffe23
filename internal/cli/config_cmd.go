package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/config"
	"github.com/aidanlsb/esm/internal/ui"
)

var (
	configInitToken   string
	configInitBaseURL string
	configInitForce   bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the esm config file",
	Long: `Inspect and create the esm config file.

Settings are resolved from the config file, then ESA_API_KEY, ESA_TEAM and
ESA_USER, then --team, --user and --root. A legacy .esa_cli file in the
workspace root fills anything still unset.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c := getConfig()
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	validation := ""
	if err := c.Validate(); err != nil {
		validation = err.Error()
	}

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"config_path": path,
			"team":        c.Team,
			"user":        c.User,
			"token":       maskToken(c.Token),
			"base_url":    c.BaseURL,
			"root":        c.Root,
			"valid":       validation == "",
			"problem":     validation,
		}, nil)
		return nil
	}

	table := ui.NewTable(2)
	table.AddRow(ui.Hint("config"), ui.FilePath(path))
	table.AddRow(ui.Hint("team"), c.Team)
	table.AddRow(ui.Hint("user"), c.User)
	table.AddRow(ui.Hint("token"), maskToken(c.Token))
	if c.BaseURL != "" {
		table.AddRow(ui.Hint("base_url"), c.BaseURL)
	}
	table.AddRow(ui.Hint("root"), ui.FilePath(c.Root))
	fmt.Print(table.String())
	if validation != "" {
		fmt.Println(ui.Warning(validation))
	}
	return nil
}

// maskToken keeps only enough of the token to tell two apart.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file",
	Long: `Write a config file from --team, --user, --token and --root.

The file goes to --config when given, otherwise to
$XDG_CONFIG_HOME/esm/config.toml. An existing file is left alone unless
--force is set.`,
	Example:     `  esm config init --team docs --user alice --token $ESA_API_KEY`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := configPath
		if target == "" {
			var err error
			target, err = config.XDGPath()
			if err != nil {
				return handleError(ErrConfigInvalid, err, "Pass --config to choose a location")
			}
		}

		if _, err := os.Stat(target); err == nil && !configInitForce {
			return handleErrorMsg(ErrFileExists, "config already exists: "+target, "Use --force to overwrite it")
		}

		c := &config.Config{}
		c.ApplyFlags(configFlags)
		c.Token = strings.TrimSpace(configInitToken)
		c.BaseURL = strings.TrimSpace(configInitBaseURL)
		if err := c.Validate(); err != nil {
			return handleSyncError(err)
		}

		if err := config.SaveTo(target, c); err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"config_path": target}, nil)
			return nil
		}
		fmt.Println(ui.Check("wrote " + ui.FilePath(target)))
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitToken, "token", "", "esa personal access token")
	configInitCmd.Flags().StringVar(&configInitBaseURL, "base-url", "", "API base URL (defaults to https://api.esa.io)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
