package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs/internal/store"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List local profiles",
	Long: `List the profiles that have a database under the profile root.

Select one with --profile or $REGS_PROFILE.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

type profileEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Current bool   `json:"current"`
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := filepath.Dir(filepath.Dir(cfg.LocalPath))
	names, err := store.ListProfiles(root)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	entries := make([]profileEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, profileEntry{
			Name:    name,
			Path:    store.ProfileDBPath(root, name),
			Current: name == cfg.Profile,
		})
	}

	if outputJSON {
		return outputAsJSON(cmd, entries)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No profiles yet. Any command creates the current one.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		mark := ""
		if e.Current {
			mark = "*"
		}
		rows = append(rows, []string{mark, e.Name, e.Path})
	}
	fmt.Fprintln(out, renderTable([]string{"", "PROFILE", "PATH"}, rows))
	return nil
}
