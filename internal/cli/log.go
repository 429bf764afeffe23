package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/journal"
	"github.com/aidanlsb/esm/internal/paths"
	"github.com/aidanlsb/esm/internal/ui"
)

var (
	logLimit int
	logName  string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent sync activity",
	Long: `Show the journal of pushes, fetches and uploads made from this workspace,
newest first. The journal lives in .esm/journal.db under the workspace root.`,
	Example: `  esm log
  esm log --name infra/db/backup
  esm log --limit 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(journal.Path(getRoot())); err != nil {
			return printEntries(nil)
		}

		j, err := journal.Open(getRoot())
		if err != nil {
			return handleError(ErrJournal, err, "Remove .esm/journal.db to start a fresh journal")
		}
		defer j.Close()

		var entries []journal.Entry
		if logName != "" {
			name, err := paths.Parse(logName)
			if err != nil {
				return handleSyncError(err)
			}
			entries, err = j.ForName(cmd.Context(), name.String())
			if err != nil {
				return handleError(ErrJournal, err, "")
			}
			if logLimit > 0 && len(entries) > logLimit {
				entries = entries[:logLimit]
			}
		} else {
			entries, err = j.Recent(cmd.Context(), logLimit)
			if err != nil {
				return handleError(ErrJournal, err, "")
			}
		}
		return printEntries(entries)
	},
}

func printEntries(entries []journal.Entry) error {
	if isJSONOutput() {
		if entries == nil {
			entries = []journal.Entry{}
		}
		outputSuccess(map[string]interface{}{"entries": entries}, &Meta{Count: len(entries)})
		return nil
	}

	if len(entries) == 0 {
		fmt.Println(ui.Hint("no activity recorded"))
		return nil
	}

	table := ui.NewTable(5)
	for _, e := range entries {
		number := ""
		if e.Number != nil {
			number = "#" + strconv.FormatUint(*e.Number, 10)
		}
		table.AddRow(ui.Hint(e.At.Local().Format("2006-01-02 15:04")), string(e.Action), ui.FilePath(e.Name), number, e.URL)
	}
	fmt.Print(table.String())
	return nil
}

func init() {
	logCmd.Flags().IntVar(&logLimit, "limit", 20, "Maximum entries to show (0 for all)")
	logCmd.Flags().StringVar(&logName, "name", "", "Only show entries for this post")
	rootCmd.AddCommand(logCmd)
}
