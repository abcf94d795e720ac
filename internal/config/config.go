// Package config handles TOML-based configuration loading and validation.
// The file is parsed as data only; precedence is defaults < config file <
// CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Player              string   `toml:"player"`
	History             bool     `toml:"history"`
	RemoveAds           bool     `toml:"remove_ads"`
	MinSegmentDuration  float64  `toml:"min_segment_duration"`
	AdURLPatterns       []string `toml:"ad_url_patterns"` // appended to the built-in set
	MaxConcurrentProbes int      `toml:"max_concurrent_probes"`
	LogLevel            string   `toml:"log_level"`
	Debug               bool     `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Player:              "mpv",
		History:             true,
		RemoveAds:           true,
		MinSegmentDuration:  3,
		MaxConcurrentProbes: 8,
		LogLevel:            "info",
		Debug:               false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oriontv"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "oriontv"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataPath returns the path to the playback database.
func DataPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "oriontv", "playback.db"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "none": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, none)", c.Player)
	}

	if c.MinSegmentDuration < 0 {
		return fmt.Errorf("min_segment_duration must be >= 0, got %v", c.MinSegmentDuration)
	}

	if c.MaxConcurrentProbes < 1 {
		return fmt.Errorf("max_concurrent_probes must be >= 1, got %d", c.MaxConcurrentProbes)
	}

	for _, p := range c.AdURLPatterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("ad_url_patterns must not contain blank entries")
		}
	}

	return nil
}
