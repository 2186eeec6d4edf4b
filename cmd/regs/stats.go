package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsHealth bool

func init() {
	statsCmd.Flags().BoolVar(&statsHealth, "health", false, "Include health check")
	rootCmd.AddCommand(statsCmd)
}

type statsOutput struct {
	*regs.Stats
	Profile string             `json:"profile"`
	Path    string             `json:"path"`
	Health  *regs.HealthStatus `json:"health,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := sess.client.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	result := statsOutput{Stats: st, Profile: sess.cfg.Profile, Path: sess.cfg.LocalPath}
	if statsHealth {
		ctx, cancel := context.WithTimeout(commandContext(cmd), 10*time.Second)
		defer cancel()
		h := sess.client.HealthCheck(ctx)
		result.Health = &h
	}

	if outputJSON {
		return outputAsJSON(cmd, result)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Profile:     %s\n", result.Profile)
	fmt.Fprintf(&b, "Records:     %d\n", st.Total)
	for _, c := range regs.ValidCategories() {
		fmt.Fprintf(&b, "  %-9s  %d\n", c, st.ByCategory[c])
	}
	fmt.Fprintf(&b, "Pending:     %d\n", st.Unsynced)
	fmt.Fprintf(&b, "Deletes:     %d queued\n", st.PendingDeletes)
	fmt.Fprintf(&b, "Delivered:   %d of %d\n", st.Delivered, st.Total)
	if st.Newest != nil {
		fmt.Fprintf(&b, "Newest:      %s (%s)\n", st.Newest.Title, st.Newest.Timestamp)
	}
	if st.LastSync.IsZero() {
		b.WriteString("Last sync:   never")
	} else {
		fmt.Fprintf(&b, "Last sync:   %s (%s ago)",
			st.LastSync.Local().Format(time.RFC3339),
			time.Since(st.LastSync).Round(time.Minute))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderPanel("Local Records", b.String()))

	if result.Health != nil {
		h := result.Health
		switch {
		case h.Healthy && sess.cfg.IsOffline():
			printSuccess(out, "Store OK (no remote configured)")
		case h.Healthy && h.RemoteReachable:
			printSuccess(out, "Store OK, remote reachable")
		case h.Healthy:
			printWarning(out, "Store OK, remote unreachable: %s", h.Error)
		default:
			printError(out, "Store unhealthy: %s", h.Error)
		}
	}
	return nil
}
