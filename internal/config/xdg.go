// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// DefaultRunFile is the run file used when none is configured, relative to
// the working directory.
const DefaultRunFile = "tsplit_splits.toml"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "state")
}

// DefaultDBPath returns the default path for the attempt archive.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "tsplit", "archive.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), "tsplit", "tsplit.log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "tsplit", "config.toml")
}
