package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/legacy"
	"github.com/aidanlsb/esm/internal/ui"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert posts stored in older layouts",
	Long: `Convert posts stored in older on-disk layouts into single files with a
+++ TOML header:

  <category>/<name>/body.md + settings.json  ->  <category>/<name>.md
  <category>/<name>.md with a --- YAML header  ->  same file, TOML header

Posts that cannot be converted safely, including ones whose target file
already exists, are skipped and reported.`,
	Example: `  esm migrate --dry-run
  esm migrate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := legacy.Migrate(getRoot(), migrateDryRun)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(result, &Meta{Count: len(result.Migrated)})
			return nil
		}

		if len(result.Migrated) == 0 && len(result.Skipped) == 0 {
			fmt.Println(ui.Check("nothing to migrate"))
			return nil
		}

		verb := "migrated"
		if result.DryRun {
			verb = "would migrate"
		}
		for _, item := range result.Migrated {
			fmt.Printf("%s %s -> %s %s\n", verb, ui.FilePath(item.Source), ui.FilePath(item.Target), ui.Hint("("+string(item.Kind)+")"))
		}
		for _, skip := range result.Skipped {
			fmt.Println(ui.Warningf("skipped %s: %s", skip.Item.Source, skip.Reason))
		}
		if result.DryRun {
			fmt.Println(ui.Hint("Dry run: no files were changed. Run without --dry-run to apply."))
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Report what would change without writing")
	rootCmd.AddCommand(migrateCmd)
}
