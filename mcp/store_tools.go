package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperengineering/regs"
	"github.com/hyperengineering/regs/internal/store"
)

// handleStats handles the regs_stats tool call.
func (s *Server) handleStats(ctx context.Context, _ map[string]any) (*ToolResult, error) {
	st, err := s.client.Stats(ctx)
	if err != nil {
		return toolError("stats failed: %v", err), nil
	}
	return &ToolResult{Content: formatStats(st, time.Now())}, nil
}

// handleProfiles handles the regs_profiles tool call. Profiles live next to
// each other under the profiles root, so the root is derived from the
// client's database path.
func (s *Server) handleProfiles(_ context.Context, _ map[string]any) (*ToolResult, error) {
	cfg := s.client.Config()
	root := filepath.Dir(filepath.Dir(cfg.LocalPath))

	profiles, err := store.ListProfiles(root)
	if err != nil {
		return toolError("list profiles failed: %v", err), nil
	}
	if len(profiles) == 0 {
		return &ToolResult{Content: "No profiles found."}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Profiles (%d):\n", len(profiles))
	for _, p := range profiles {
		marker := " "
		if p == cfg.Profile {
			marker = "*"
		}
		fmt.Fprintf(&sb, "  %s %s\n", marker, p)
	}
	return &ToolResult{Content: sb.String()}, nil
}

// formatStats formats collection statistics for display.
func formatStats(st *regs.Stats, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Records: %d\n", st.Total)
	if st.Total > 0 {
		sb.WriteString("\nBy category:\n")
		for _, c := range regs.ValidCategories() {
			n := st.ByCategory[c]
			fmt.Fprintf(&sb, "  %-10s %d (%.1f%%)\n", c, n, percent(n, st.Total))
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Synced: %d | Pending: %d\n", st.Synced, st.Unsynced)
		fmt.Fprintf(&sb, "Delivered: %d | Not delivered: %d\n", st.Delivered, st.Undelivered)
	}
	if st.PendingDeletes > 0 {
		fmt.Fprintf(&sb, "Deletes awaiting sync: %d\n", st.PendingDeletes)
	}
	if st.Oldest != nil {
		fmt.Fprintf(&sb, "Oldest: %s (%s)\n", st.Oldest.Title, st.Oldest.Timestamp)
	}
	if st.Newest != nil {
		fmt.Fprintf(&sb, "Newest: %s (%s)\n", st.Newest.Title, st.Newest.Timestamp)
	}
	if st.LastSync.IsZero() {
		sb.WriteString("Last sync: never\n")
	} else {
		fmt.Fprintf(&sb, "Last sync: %s\n", formatRelativeTime(st.LastSync, now))
	}
	return sb.String()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// formatRelativeTime formats t relative to now (e.g., "2h ago").
func formatRelativeTime(t, now time.Time) string {
	duration := now.Sub(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
}
