package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/mirror"
	"github.com/aidanlsb/esm/internal/paths"
	"github.com/aidanlsb/esm/internal/ui"
)

var (
	fetchName   string
	fetchNumber uint64
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download posts from esa, replacing local copies",
	Long: `Download posts from esa into the workspace.

With --number, fetches that single post. With --name, fetches your posts
matching <category>/<name>. With neither, fetches every post you wrote.
Local files are always overwritten by the remote copy. Uncategorized posts
are skipped.`,
	Example: `  esm fetch --number 42
  esm fetch --name infra/db/backup
  esm fetch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		selector := mirror.All()
		switch {
		case cmd.Flags().Changed("name"):
			name, err := paths.Parse(fetchName)
			if err != nil {
				return handleSyncError(err)
			}
			selector = mirror.ByName(name)
		case cmd.Flags().Changed("number"):
			selector = mirror.ByNumber(fetchNumber)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		var fetched []mirror.FetchedPost
		fetchErr := withSpinner("fetching "+selector.String(), func() error {
			var err error
			fetched, err = s.engine.Fetch(cmd.Context(), selector)
			return err
		})

		items := make([]map[string]interface{}, 0, len(fetched))
		for _, f := range fetched {
			item := map[string]interface{}{
				"name": f.Post.Name.String(),
				"file": f.Post.Path(),
				"url":  f.URL,
			}
			if f.Post.Meta.Number != nil {
				item["number"] = *f.Post.Meta.Number
			}
			items = append(items, item)

			if !isJSONOutput() {
				printOK(f.URL, ui.FilePath(relativeToRoot(f.Post.Path())))
			}
		}

		if fetchErr != nil {
			return handleSyncError(fetchErr)
		}
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"fetched": items}, &Meta{Count: len(items)})
			return nil
		}
		if len(fetched) == 0 {
			fmt.Println(ui.Hint("nothing to fetch"))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchName, "name", "", "Fetch your posts named <category>/<name>")
	fetchCmd.Flags().Uint64Var(&fetchNumber, "number", 0, "Fetch the post with this number")
	fetchCmd.MarkFlagsMutuallyExclusive("name", "number")
	rootCmd.AddCommand(fetchCmd)
}
