package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/buildinfo"
	"github.com/aidanlsb/esm/internal/config"
	"github.com/aidanlsb/esm/internal/esa"
	"github.com/aidanlsb/esm/internal/journal"
)

// versionInfo describes the binary and what it would talk to.
type versionInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit,omitempty"`
	Go            string `json:"go"`
	Platform      string `json:"platform"`
	API           string `json:"api"`
	Team          string `json:"team,omitempty"`
	JournalSchema int    `json:"journal_schema"`
}

var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show esm version, API endpoint and journal schema",
	Long: `Show the esm build, the esa API root it would call, and the journal
schema version it writes. A broken or missing config is not an error here;
the default API root is shown instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := config.Resolve(config.Options{Path: configPath, Flags: configFlags})
		if err != nil {
			logger.Debug().Err(err).Msg("version: config not resolved")
		}
		info := currentVersionInfo(resolved)

		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}

		if info.Commit != "" {
			fmt.Printf("esm %s (%s)\n", info.Version, info.Commit)
		} else {
			fmt.Printf("esm %s\n", info.Version)
		}
		fmt.Printf("api: %s\n", info.API)
		if info.Team != "" {
			fmt.Printf("team: %s\n", info.Team)
		}
		fmt.Printf("journal schema: %d\n", info.JournalSchema)
		fmt.Printf("built with %s for %s\n", info.Go, info.Platform)
		return nil
	},
}

// currentVersionInfo merges ldflags, module build info and the resolved
// config. A nil cfg reports the default API root.
func currentVersionInfo(cfg *config.Config) versionInfo {
	info := versionInfo{
		Version:       "devel",
		Commit:        buildinfo.Commit,
		Go:            runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		API:           esa.DefaultBaseURL,
		JournalSchema: journal.SchemaVersion,
	}

	if buildinfo.Version != "" {
		info.Version = buildinfo.Version
	} else if bi, ok := readBuildInfo(); ok && bi != nil {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
		if info.Commit == "" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.Commit = s.Value
				}
			}
		}
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}

	if cfg != nil {
		if cfg.BaseURL != "" {
			info.API = cfg.BaseURL
		}
		info.Team = cfg.Team
	}
	return info
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
