package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/post"
	"github.com/aidanlsb/esm/internal/ui"
	"github.com/aidanlsb/esm/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Push posts automatically as they are saved",
	Long: `Watch the workspace and push each post shortly after it was last saved.

Posts already in the workspace when watching starts are not pushed until
they change. Failed pushes are reported and watching continues. Stop with
Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		w, err := watcher.New(watcher.Config{
			Root:          getRoot(),
			DebounceDelay: watchDebounce,
			Logger:        &logger,
			OnChange: func(ctx context.Context, path string) error {
				result, err := s.engine.Push(ctx, path)
				if err != nil {
					return err
				}
				if isJSONOutput() {
					outputSuccess(map[string]interface{}{
						"name":    result.Post.Name.String(),
						"file":    result.Post.Path(),
						"url":     result.URL,
						"created": result.Created,
					}, nil)
				} else {
					printOK(ui.FilePath(relativeToRoot(path)), result.URL)
				}
				return nil
			},
			OnResult: func(path string, err error) {
				if err == nil {
					return
				}
				if isJSONOutput() {
					outputError(errorCode(err), err.Error(), map[string]string{"file": path}, "")
					return
				}
				fmt.Println(ui.Warningf("%s: %v", relativeToRoot(path), err))
			},
		})
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		// Existing content counts as handled; only later edits are pushed.
		_ = post.Walk(getRoot(), func(result post.WalkResult) error {
			w.MarkHandled(result.Path)
			return nil
		})

		if !isJSONOutput() {
			fmt.Println(ui.Hint("watching " + getRoot() + " (Ctrl-C to stop)"))
		}
		err = w.Start(cmd.Context())
		if err != nil && !errors.Is(err, context.Canceled) {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period after the last write before pushing")
	rootCmd.AddCommand(watchCmd)
}
