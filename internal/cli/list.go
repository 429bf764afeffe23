package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/document"
	"github.com/aidanlsb/esm/internal/post"
	"github.com/aidanlsb/esm/internal/ui"
)

type listedPost struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Number *uint64  `json:"number,omitempty"`
	WIP    bool     `json:"wip"`
	Tags   []string `json:"tags"`
	Title  string   `json:"title,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List local posts",
	Long: `List the posts in the workspace with their number, wip state and title.
Posts without a number have never been pushed. Files that fail to parse are
reported as warnings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			listed   []listedPost
			warnings []Warning
		)
		err := post.Walk(getRoot(), func(result post.WalkResult) error {
			if result.Error != nil {
				warnings = append(warnings, Warning{
					Code:    errorCode(result.Error),
					Message: result.Error.Error(),
					Path:    result.RelativePath,
				})
				return nil
			}
			p := result.Post
			listed = append(listed, listedPost{
				Name:   p.Name.String(),
				File:   result.RelativePath,
				Number: p.Meta.Number,
				WIP:    p.Meta.WIP,
				Tags:   p.Meta.Tags,
				Title:  document.Title(p.Text()),
			})
			return nil
		})
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			if listed == nil {
				listed = []listedPost{}
			}
			outputSuccessWithWarnings(map[string]interface{}{"posts": listed}, warnings, &Meta{Count: len(listed)})
			return nil
		}

		for _, w := range warnings {
			fmt.Println(ui.Warningf("%s: %s", w.Path, w.Message))
		}
		if len(listed) == 0 {
			fmt.Println(ui.Hint("no posts"))
			return nil
		}

		table := ui.NewTable(4)
		for _, p := range listed {
			number := "-"
			if p.Number != nil {
				number = "#" + strconv.FormatUint(*p.Number, 10)
			}
			wip := ""
			if p.WIP {
				wip = "wip"
			}
			table.AddRow(ui.FilePath(p.Name), number, wip, p.Title)
		}
		fmt.Print(table.String())
		fmt.Println(ui.Hint(ui.Count(len(listed), "post", "posts")))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
