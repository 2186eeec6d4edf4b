// Package store resolves which local profile database regs operates on.
// Each profile keeps its own SQLite file under ~/.regs/profiles.
package store

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "default"

// ErrInvalidProfile indicates the profile name format is invalid.
var ErrInvalidProfile = errors.New("invalid profile: must be lowercase alphanumeric with hyphens, 1-64 characters")

// profileRegex validates a single lowercase segment with inner hyphens.
var profileRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?$`)

// ValidateProfile validates a profile name.
func ValidateProfile(name string) error {
	if name == "" || strings.Contains(name, "--") {
		return ErrInvalidProfile
	}
	if !profileRegex.MatchString(name) {
		return ErrInvalidProfile
	}
	return nil
}
