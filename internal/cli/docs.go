package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/docs"
	"github.com/aidanlsb/esm/internal/ui"
)

var docsCmd = &cobra.Command{
	Use:         "docs [topic]",
	Short:       "Read the bundled guides",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := docs.Topics()
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if len(args) == 0 {
			if isJSONOutput() {
				outputSuccess(map[string]interface{}{"topics": topics}, &Meta{Count: len(topics)})
				return nil
			}
			for _, topic := range topics {
				fmt.Println(topic)
			}
			fmt.Println(ui.Hint("Read one with 'esm docs <topic>'"))
			return nil
		}

		content, err := docs.Guide(args[0])
		if err != nil {
			return handleErrorMsg(ErrInvalidInput, "unknown topic: "+args[0], "Available: "+strings.Join(topics, ", "))
		}
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"topic": args[0], "content": content}, nil)
			return nil
		}

		display := ui.NewDisplayContext(os.Stdout)
		rendered, err := ui.RenderMarkdown(content, display.AvailableWidth(ui.MarkdownRenderMargin))
		if err != nil {
			fmt.Print(content)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
