// ABOUTME: YAML config file loading and XDG-based data directory resolution.
// ABOUTME: Flags override file values; the file is optional and absent means all defaults.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML config file. Zero values mean
// "not set" and fall back to defaults.
type fileConfig struct {
	Port         int    `yaml:"port"`
	DataDir      string `yaml:"data_dir"`
	MaxSessions  int    `yaml:"max_sessions"`
	SessionTTL   string `yaml:"session_ttl"`
	HistoryLimit int    `yaml:"history_limit"`
}

// loadConfigFile reads a YAML config file. A missing file at the default
// location is not an error; a missing file given explicitly is.
func loadConfigFile(path string, explicit bool) (fileConfig, error) {
	var fc fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return fc, nil
		}
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	return fc, nil
}

// sessionTTL parses the configured TTL, defaulting to one hour.
func (fc fileConfig) sessionTTL() (time.Duration, error) {
	if fc.SessionTTL == "" {
		return time.Hour, nil
	}
	d, err := time.ParseDuration(fc.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("parse session_ttl: %w", err)
	}
	return d, nil
}

// defaultDataDir returns the default data directory for persistent graphs.
// It checks XDG_DATA_HOME first, then falls back to ~/.local/share/nodegraph.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "nodegraph"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "nodegraph"), nil
}

// defaultConfigPath returns the default config file location under
// XDG_CONFIG_HOME or ~/.config/nodegraph.
func defaultConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nodegraph", "config.yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", "nodegraph", "config.yaml"), nil
}
