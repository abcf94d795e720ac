package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should validate, got: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Player != "mpv" {
		t.Errorf("Player = %q, want %q", cfg.Player, "mpv")
	}
	if !cfg.RemoveAds {
		t.Error("RemoveAds should default to true")
	}
	if cfg.MinSegmentDuration != 3 {
		t.Errorf("MinSegmentDuration = %v, want 3", cfg.MinSegmentDuration)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfgDir := filepath.Join(dir, "oriontv")
	if err := os.MkdirAll(cfgDir, 0700); err != nil {
		t.Fatal(err)
	}
	content := "min_segment_duration = 5.0\nlog_level = \"debug\"\nad_url_patterns = [\"/sponsor/\"]\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MinSegmentDuration != 5 {
		t.Errorf("MinSegmentDuration = %v, want 5", cfg.MinSegmentDuration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Player != "mpv" {
		t.Errorf("Player should keep default, got %q", cfg.Player)
	}
	if len(cfg.AdURLPatterns) != 1 || cfg.AdURLPatterns[0] != "/sponsor/" {
		t.Errorf("AdURLPatterns = %v, want [/sponsor/]", cfg.AdURLPatterns)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad player", func(c *Config) { c.Player = "quicktime" }},
		{"negative min duration", func(c *Config) { c.MinSegmentDuration = -1 }},
		{"zero probe concurrency", func(c *Config) { c.MaxConcurrentProbes = 0 }},
		{"blank ad pattern", func(c *Config) { c.AdURLPatterns = []string{"  "} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should have failed")
			}
		})
	}
}
