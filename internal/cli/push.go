package cli

import (
	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/mirror"
	"github.com/aidanlsb/esm/internal/ui"
)

var pushCmd = &cobra.Command{
	Use:   "push <file>...",
	Short: "Send local posts to esa",
	Long: `Send local posts to esa.

A post without a number is created and the number esa assigns is written
back into the file. A post with a number updates that remote post.
Files are pushed in order; the first failure stops the run.`,
	Example: `  esm push infra/db/backup.md
  esm push notes/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		var pushed []map[string]interface{}
		for _, arg := range args {
			var result *mirror.PushResult
			err := withSpinner("pushing "+arg, func() error {
				var err error
				result, err = s.engine.Push(cmd.Context(), resolvePostPath(arg))
				return err
			})
			if err != nil {
				return handleSyncError(err)
			}

			entry := map[string]interface{}{
				"name":    result.Post.Name.String(),
				"file":    result.Post.Path(),
				"url":     result.URL,
				"created": result.Created,
			}
			if result.Post.Meta.Number != nil {
				entry["number"] = *result.Post.Meta.Number
			}
			pushed = append(pushed, entry)

			if !isJSONOutput() {
				printOK(ui.FilePath(relativeToRoot(result.Post.Path())), result.URL)
			}
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"pushed": pushed}, &Meta{Count: len(pushed)})
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
