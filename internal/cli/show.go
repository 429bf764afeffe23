package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/document"
	"github.com/aidanlsb/esm/internal/post"
	"github.com/aidanlsb/esm/internal/ui"
)

var (
	showRaw     bool
	showOutline bool
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Display a local post",
	Long: `Display a local post with its header summarized and its body rendered
as markdown. Use --raw for the file exactly as stored, or --outline for its
headings.`,
	Example: `  esm show infra/db/backup.md
  esm show infra/db/backup.md --outline`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := post.LoadFile(getRoot(), resolvePostPath(args[0]))
		if err != nil {
			return handleSyncError(err)
		}
		outline := document.Outline(p.Text())

		if isJSONOutput() {
			headings := make([]map[string]interface{}, 0, len(outline))
			for _, h := range outline {
				headings = append(headings, map[string]interface{}{"level": h.Level, "text": h.Text, "line": h.Line})
			}
			data := map[string]interface{}{
				"name":     p.Name.String(),
				"file":     p.Path(),
				"tags":     p.Meta.Tags,
				"wip":      p.Meta.WIP,
				"body":     p.Text(),
				"headings": headings,
			}
			if p.Meta.Number != nil {
				data["number"] = *p.Meta.Number
			}
			outputSuccess(data, nil)
			return nil
		}

		if showRaw {
			content, err := os.ReadFile(p.Path())
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			fmt.Print(string(content))
			return nil
		}

		fmt.Println(ui.Header(p.Name.String()))
		fmt.Println(ui.Hint(describeMeta(p.Meta)))
		fmt.Println()

		if showOutline {
			if len(outline) == 0 {
				fmt.Println(ui.Hint("no headings"))
			}
			for _, h := range outline {
				fmt.Printf("%s%s %s\n", strings.Repeat("  ", h.Level-1), h.Text, ui.Hint(fmt.Sprintf(":%d", h.Line)))
			}
			return nil
		}

		display := ui.NewDisplayContext(os.Stdout)
		rendered, err := ui.RenderMarkdown(p.Text(), display.AvailableWidth(ui.MarkdownRenderMargin))
		if err != nil {
			fmt.Print(p.Text())
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func describeMeta(meta document.Meta) string {
	parts := []string{"local only"}
	if meta.Number != nil {
		parts[0] = fmt.Sprintf("#%d", *meta.Number)
	}
	if meta.WIP {
		parts = append(parts, "wip")
	}
	if len(meta.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(meta.Tags, " #"))
	}
	return strings.Join(parts, " · ")
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the file as stored")
	showCmd.Flags().BoolVar(&showOutline, "outline", false, "Print the post's headings")
	showCmd.MarkFlagsMutuallyExclusive("raw", "outline")
	rootCmd.AddCommand(showCmd)
}
