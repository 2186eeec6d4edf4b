package store

import (
	"fmt"
	"os"
)

// EnvProfile names the environment variable consulted by ResolveProfile.
const EnvProfile = "REGS_PROFILE"

// ResolveProfile determines the profile to use.
// Priority: explicit > REGS_PROFILE env > "default"
func ResolveProfile(explicit string) (string, error) {
	if explicit != "" {
		if err := ValidateProfile(explicit); err != nil {
			return "", fmt.Errorf("invalid profile %q: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv(EnvProfile); env != "" {
		if err := ValidateProfile(env); err != nil {
			return "", fmt.Errorf("invalid %s %q: %w", EnvProfile, env, err)
		}
		return env, nil
	}

	return DefaultProfile, nil
}
