package cli

import (
	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/post"
	"github.com/aidanlsb/esm/internal/ui"
)

var createCmd = &cobra.Command{
	Use:   "create <category/name>",
	Short: "Create an empty local post",
	Long: `Create an empty local post at <category>/<name>.md.

The post starts as a work in progress with no tags and no number. It stays
local until the first push.`,
	Example: `  esm create infra/db/backup
  esm create notes/ideas --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := post.New(getRoot(), args[0])
		if err != nil {
			return handleSyncError(err)
		}
		if err := p.Save(); err != nil {
			return handleSyncError(err)
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"name": p.Name.String(),
				"file": p.Path(),
			}, nil)
			return nil
		}
		printOK(ui.FilePath(p.Name.String()), "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
