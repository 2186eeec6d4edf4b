package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the remote record service",
	Long: `Push pending records and queued deletes, then pull the owner's records
from the remote service and merge them into the local database.

Without an owner or a remote URL the local records are left untouched.`,
	Example: `  regs sync --owner alice
  regs sync --timeout 2m --json`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncTimeout time.Duration

func init() {
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 60*time.Second, "Give up on remote calls after this long")
	rootCmd.AddCommand(syncCmd)
}

// syncSummary is the JSON form of a sync result. Records are left out.
type syncSummary struct {
	Records        int   `json:"records"`
	Pushed         int   `json:"pushed"`
	PushFailed     int   `json:"push_failed"`
	DeletesFlushed int   `json:"deletes_flushed"`
	Pulled         int   `json:"pulled"`
	Dropped        int   `json:"dropped"`
	Offline        bool  `json:"offline"`
	PullFailed     bool  `json:"pull_failed"`
	DurationMs     int64 `json:"duration_ms"`
}

func runSync(cmd *cobra.Command, args []string) error {
	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), syncTimeout)
	defer cancel()

	var result *regs.SyncResult
	err = runWithSpinner(cmd.ErrOrStderr(), "Synchronizing", func() error {
		var err error
		result, err = sess.client.Sync(ctx, sess.client.Owner())
		return err
	})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	summary := syncSummary{
		Records:        len(result.Records),
		Pushed:         result.Pushed,
		PushFailed:     result.PushFailed,
		DeletesFlushed: result.DeletesFlushed,
		Pulled:         result.Pulled,
		Dropped:        result.Dropped,
		Offline:        result.Offline,
		PullFailed:     result.PullFailed,
		DurationMs:     result.Duration.Milliseconds(),
	}
	if outputJSON {
		return outputAsJSON(cmd, summary)
	}

	out := cmd.OutOrStdout()
	switch {
	case result.Offline:
		printWarning(out, "Offline: sign in with --owner and set --remote-url to sync")
		fmt.Fprintf(out, "Local records: %d\n", summary.Records)
		return nil
	case result.PullFailed:
		printWarning(out, "Pull failed; showing local records")
	default:
		printSuccess(out, "Sync complete (took %s)", result.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Pushed:  %d", result.Pushed)
	if result.PushFailed > 0 {
		fmt.Fprintf(out, " (%d failed, still pending)", result.PushFailed)
	}
	fmt.Fprintln(out)
	if result.DeletesFlushed > 0 {
		fmt.Fprintf(out, "Deletes: %d\n", result.DeletesFlushed)
	}
	if !result.PullFailed {
		fmt.Fprintf(out, "Pulled:  %d\n", result.Pulled)
	}
	if result.Dropped > 0 {
		fmt.Fprintf(out, "Removed: %d (deleted remotely)\n", result.Dropped)
	}
	fmt.Fprintf(out, "Records: %d\n", summary.Records)
	return nil
}
