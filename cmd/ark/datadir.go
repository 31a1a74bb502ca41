// ABOUTME: XDG-based data and config directory resolution for the ark CLI.
// ABOUTME: Checks XDG_DATA_HOME / XDG_CONFIG_HOME, falls back to ~/.local/share/ark and ~/.config/ark.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultDataDir returns the default data directory for run state and logs.
// It checks XDG_DATA_HOME first, then falls back to ~/.local/share/ark.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ark"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "ark"), nil
}

// defaultConfigDir returns the default directory for config.yaml and rule overrides.
// It checks XDG_CONFIG_HOME first, then falls back to ~/.config/ark.
func defaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ark"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", "ark"), nil
}

// resolveDataDir returns the data directory to use, preferring an explicit
// override and falling back to the XDG-based default.
func resolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return defaultDataDir()
}

// stateDir is where run state files and event logs live.
func stateDir(dataDir string) string {
	return filepath.Join(dataDir, "state", "backup_runs")
}
