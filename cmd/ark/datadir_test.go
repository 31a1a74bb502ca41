// ABOUTME: Tests for XDG-based data and config directory resolution used by the ark CLI.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDataDirUsesXDGDataHome(t *testing.T) {
	customDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", customDir)

	got, err := defaultDataDir()
	if err != nil {
		t.Fatalf("defaultDataDir failed: %v", err)
	}
	if want := filepath.Join(customDir, "ark"); got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}

func TestDefaultDataDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	got, err := defaultDataDir()
	if err != nil {
		t.Fatalf("defaultDataDir failed: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir failed: %v", err)
	}
	if want := filepath.Join(home, ".local", "share", "ark"); got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}

func TestDefaultConfigDirUsesXDGConfigHome(t *testing.T) {
	customDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customDir)

	got, err := defaultConfigDir()
	if err != nil {
		t.Fatalf("defaultConfigDir failed: %v", err)
	}
	if want := filepath.Join(customDir, "ark"); got != want {
		t.Errorf("defaultConfigDir() = %q, want %q", got, want)
	}
}

func TestResolveDataDirPrefersOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/should/not/be/used")
	got, err := resolveDataDir("/explicit")
	if err != nil || got != "/explicit" {
		t.Errorf("resolveDataDir = %q, %v", got, err)
	}
	if want := filepath.Join("/explicit", "state", "backup_runs"); stateDir(got) != want {
		t.Errorf("stateDir = %q, want %q", stateDir(got), want)
	}
}
