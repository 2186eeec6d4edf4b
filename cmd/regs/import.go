package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import records from a JSON export",
	Long: `Import records from a file written by 'regs export'. Use "-" to read stdin.

Strategies decide what happens when an imported id already exists:
  merge    overwrite the local record (default)
  skip     keep the local record
  replace  overwrite, and drop local records missing from the import

Imported records are marked pending and pushed by the next sync.`,
	Example: `  regs import backup.json
  regs import backup.json --strategy skip --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importStrategy string
	importDryRun   bool
)

func init() {
	importCmd.Flags().StringVar(&importStrategy, "strategy", string(regs.MergeStrategyMerge), "Conflict strategy: merge, skip, replace")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report what would change without writing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	strategy, err := regs.ParseMergeStrategy(importStrategy)
	if err != nil {
		return err
	}

	var in io.Reader
	if args[0] == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		in = f
	}

	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.client.ImportJSON(commandContext(cmd), in, strategy, importDryRun)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, result)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Total:   %d\n", result.Total)
	fmt.Fprintf(&summary, "Created: %d\n", result.Created)
	fmt.Fprintf(&summary, "Merged:  %d\n", result.Merged)
	fmt.Fprintf(&summary, "Skipped: %d", result.Skipped)
	if result.Removed > 0 {
		fmt.Fprintf(&summary, "\nRemoved: %d", result.Removed)
	}

	title := "Import Summary"
	if importDryRun {
		title += " (dry run)"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderPanel(title, summary.String()))
	for _, msg := range result.Errors {
		printWarning(out, "%s", msg)
	}
	if importDryRun {
		printInfo(out, "Dry run: nothing was written")
		return nil
	}
	printSuccess(out, "Import complete")
	return nil
}
