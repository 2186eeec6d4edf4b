package store

import (
	"os"
	"path/filepath"
)

// DatabaseFile is the file name of a profile database.
const DatabaseFile = "regs.db"

// DefaultRoot returns the root directory for all profiles.
// Defaults to ~/.regs/profiles, falls back to ./.regs/profiles if home dir unavailable.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".regs", "profiles")
	}
	return filepath.Join(home, ".regs", "profiles")
}

// ProfileDBPath returns the database path of profile under root.
// An empty root means DefaultRoot.
func ProfileDBPath(root, profile string) string {
	if root == "" {
		root = DefaultRoot()
	}
	return filepath.Join(root, profile, DatabaseFile)
}

// ListProfiles returns the profiles under root that have a database file.
func ListProfiles(root string) ([]string, error) {
	if root == "" {
		root = DefaultRoot()
	}
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || ValidateProfile(e.Name()) != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), DatabaseFile)); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
