package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/mirror"
	"github.com/aidanlsb/esm/internal/ui"
)

var attachCmd = &cobra.Command{
	Use:   "attach <file>",
	Short: "Upload a file as an esa attachment",
	Long: `Upload a file as an esa attachment and print the URL to link it from
a post. The upload is not retried on failure.`,
	Example: `  esm attach diagram.png`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		var result *mirror.AttachResult
		err = withSpinner("uploading "+args[0], func() error {
			var err error
			result, err = s.engine.Attach(cmd.Context(), args[0])
			return err
		})
		if err != nil {
			return handleSyncError(err)
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"file":     result.File,
				"name":     result.Meta.Name,
				"type":     result.Meta.Type,
				"size":     result.Meta.Size,
				"url":      result.URL,
				"status":   result.Response.Status,
				"response": result.Response.Raw(),
			}, nil)
			return nil
		}

		if raw := result.Response.Raw(); raw != "" {
			fmt.Println(ui.Hint(raw))
		}
		printOK(ui.FilePath(result.File), result.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
