package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
trade:
  league: "Standard"
sampling:
  target_count: 8
  batch_delay: 2s
ramp:
  progression: [1, 10, 100]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Trade.League != "Standard" {
		t.Errorf("league = %q, want Standard", cfg.Trade.League)
	}
	if cfg.Sampling.TargetCount != 8 {
		t.Errorf("target_count = %d, want 8", cfg.Sampling.TargetCount)
	}
	if cfg.Sampling.BatchDelay != 2*time.Second {
		t.Errorf("batch_delay = %v, want 2s", cfg.Sampling.BatchDelay)
	}
	if len(cfg.Ramp.Progression) != 3 {
		t.Errorf("progression = %v", cfg.Ramp.Progression)
	}
	// Untouched sections keep defaults
	if cfg.Sampling.BatchSize != 10 {
		t.Errorf("batch_size = %d, want default 10", cfg.Sampling.BatchSize)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Trade.Realm != "poe2" {
		t.Errorf("realm = %q, want poe2", cfg.Trade.Realm)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POESESSID", "abc123")
	t.Setenv("POE_LEAGUE", "Hardcore")
	t.Setenv("POE2GAP_TARGET_COUNT", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trade.SessionID != "abc123" {
		t.Errorf("session id = %q", cfg.Trade.SessionID)
	}
	if cfg.Trade.League != "Hardcore" {
		t.Errorf("league = %q", cfg.Trade.League)
	}
	if cfg.Sampling.TargetCount != 7 {
		t.Errorf("target count = %d", cfg.Sampling.TargetCount)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("trade: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty league", func(c *Config) { c.Trade.League = "" }},
		{"zero batch", func(c *Config) { c.Sampling.BatchSize = 0 }},
		{"batch over fetch limit", func(c *Config) { c.Sampling.BatchSize = MaxFetchBatch + 1 }},
		{"empty progression", func(c *Config) { c.Ramp.Progression = nil }},
		{"non increasing progression", func(c *Config) { c.Ramp.Progression = []float64{1, 5, 5} }},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"zero buckets", func(c *Config) { c.Distribution.Buckets = 0 }},
		{"bad match strategy", func(c *Config) { c.Sampling.MatchStrategy = "last" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
