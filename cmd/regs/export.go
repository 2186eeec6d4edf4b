package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records to a backup file",
	Long: `Export the local records to a JSON document, or copy the whole SQLite
database with --sqlite.

JSON goes to stdout unless --out is given. Queued deletes are included so
an import on another machine keeps them suppressed.`,
	Example: `  regs export > records.json
  regs export -o backup.json
  regs export -o backup.db --sqlite`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportOutputPath string
	exportSQLite     bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutputPath, "out", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportSQLite, "sqlite", false, "Copy the SQLite database instead of writing JSON")
	rootCmd.AddCommand(exportCmd)
}

// exportResult is the JSON summary of a file export.
type exportResult struct {
	Format   string `json:"format"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	Duration string `json:"duration"`
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportSQLite && exportOutputPath == "" {
		return errors.New("--sqlite needs --out")
	}

	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := commandContext(cmd)
	if exportOutputPath == "" {
		return sess.client.ExportJSON(ctx, cmd.OutOrStdout())
	}

	start := time.Now()
	format := "json"
	if exportSQLite {
		format = "sqlite"
		err = sess.client.Store().Backup(ctx, exportOutputPath)
	} else {
		err = exportToFile(sess, cmd, exportOutputPath)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	var size int64
	if fi, statErr := os.Stat(exportOutputPath); statErr == nil {
		size = fi.Size()
	}
	result := exportResult{
		Format:   format,
		FilePath: exportOutputPath,
		FileSize: size,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if outputJSON {
		return outputAsJSON(cmd, result)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Format:    %s\n", strings.ToUpper(format))
	fmt.Fprintf(&summary, "File size: %s\n", formatBytes(size))
	fmt.Fprintf(&summary, "Duration:  %s\n", result.Duration)
	fmt.Fprintf(&summary, "Output:    %s", exportOutputPath)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderPanel("Export Summary", summary.String()))
	printSuccess(out, "Export complete")
	return nil
}

// exportToFile writes the JSON export to path, removing a partial file on error.
func exportToFile(sess *clientSession, cmd *cobra.Command, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return sess.client.ExportJSON(commandContext(cmd), io.Writer(f))
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
