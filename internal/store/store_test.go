package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperengineering/regs/internal/store"
)

func TestValidateProfile(t *testing.T) {
	valid := []string{"default", "shop", "a", "tailor-2", "x1y2"}
	for _, name := range valid {
		if err := store.ValidateProfile(name); err != nil {
			t.Errorf("ValidateProfile(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "Shop", "-shop", "shop-", "my--shop", "a/b", "shop_1"}
	for _, name := range invalid {
		if err := store.ValidateProfile(name); !errors.Is(err, store.ErrInvalidProfile) {
			t.Errorf("ValidateProfile(%q) = %v, want ErrInvalidProfile", name, err)
		}
	}
}

func TestResolveProfile_ExplicitParam(t *testing.T) {
	t.Setenv(store.EnvProfile, "env-profile")

	got, err := store.ResolveProfile("shop")
	if err != nil {
		t.Fatalf("ResolveProfile(explicit) unexpected error: %v", err)
	}
	if got != "shop" {
		t.Errorf("ResolveProfile(explicit) = %q, want %q", got, "shop")
	}
}

func TestResolveProfile_EnvVar(t *testing.T) {
	t.Setenv(store.EnvProfile, "env-profile")

	got, err := store.ResolveProfile("")
	if err != nil {
		t.Fatalf("ResolveProfile(env) unexpected error: %v", err)
	}
	if got != "env-profile" {
		t.Errorf("ResolveProfile(env) = %q, want %q", got, "env-profile")
	}
}

func TestResolveProfile_DefaultFallback(t *testing.T) {
	t.Setenv(store.EnvProfile, "")

	got, err := store.ResolveProfile("")
	if err != nil {
		t.Fatalf("ResolveProfile() unexpected error: %v", err)
	}
	if got != store.DefaultProfile {
		t.Errorf("ResolveProfile() = %q, want %q", got, store.DefaultProfile)
	}
}

func TestResolveProfile_InvalidEnv(t *testing.T) {
	t.Setenv(store.EnvProfile, "Not Valid")

	if _, err := store.ResolveProfile(""); !errors.Is(err, store.ErrInvalidProfile) {
		t.Errorf("ResolveProfile() error = %v, want ErrInvalidProfile", err)
	}
}

func TestProfileDBPath(t *testing.T) {
	got := store.ProfileDBPath("/data", "shop")
	want := filepath.Join("/data", "shop", "regs.db")
	if got != want {
		t.Errorf("ProfileDBPath() = %q, want %q", got, want)
	}
}

func TestListProfiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"shop", "home"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, store.DatabaseFile), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// directory without a database is not a profile
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListProfiles(root)
	if err != nil {
		t.Fatalf("ListProfiles() unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "home" || got[1] != "shop" {
		t.Errorf("ListProfiles() = %v, want [home shop]", got)
	}
}

func TestListProfiles_MissingRoot(t *testing.T) {
	got, err := store.ListProfiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil || got != nil {
		t.Errorf("ListProfiles(missing) = %v, %v; want nil, nil", got, err)
	}
}
