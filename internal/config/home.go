package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the svncrawl home directory.
const HomeEnv = "SVNCRAWL_HOME"

// GetHome returns the svncrawl home directory, creating it if needed.
// Priority order:
//  1. SVNCRAWL_HOME environment variable (if set)
//  2. ~/.svncrawl
//  3. .svncrawl in the current working directory (fallback)
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create svncrawl home directory: %w", err)
		}
		return home, nil
	}

	base, err := os.UserHomeDir()
	if err != nil || base == "" {
		if base, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	home := filepath.Join(base, ".svncrawl")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create svncrawl home directory: %w", err)
	}
	return home, nil
}

// GetHistoryDBPath returns the default run history database:
// $SVNCRAWL_HOME/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}

// HistoryDBPath returns the configured database path, or the default one when
// none is configured.
func (c *Config) HistoryDBPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	return GetHistoryDBPath()
}
