package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.BatchSize)
	}
	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.BaseTimeout != 180*time.Second {
		t.Errorf("expected 180s base timeout, got %s", cfg.Retry.BaseTimeout)
	}
	if cfg.Cutout.Pixels != 256 {
		t.Errorf("expected 256 pixels, got %d", cfg.Cutout.Pixels)
	}
	if cfg.Cutout.FieldArcmin != 1 {
		t.Errorf("expected 1 arcmin field, got %g", cfg.Cutout.FieldArcmin)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
input: galaxies.csv
output: run1
batch_size: 25
progress: true
columns:
  ra: RA
  dec: DEC
  id: objID
cutout:
  pixels: 512
retry:
  attempts: 3
  base_timeout: 90s
  jitter_max: 2s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Input != "galaxies.csv" {
		t.Errorf("expected input 'galaxies.csv', got %q", cfg.Input)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("expected batch size 25, got %d", cfg.BatchSize)
	}
	if !cfg.Progress {
		t.Error("expected progress enabled")
	}
	if cfg.Columns.ID != "objID" {
		t.Errorf("expected id column 'objID', got %q", cfg.Columns.ID)
	}
	if cfg.Cutout.Pixels != 512 {
		t.Errorf("expected 512 pixels, got %d", cfg.Cutout.Pixels)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.BaseTimeout != 90*time.Second {
		t.Errorf("expected 90s base timeout, got %s", cfg.Retry.BaseTimeout)
	}
	if cfg.Retry.JitterMax != 2*time.Second {
		t.Errorf("expected 2s jitter max, got %s", cfg.Retry.JitterMax)
	}
	// Unset fields keep defaults.
	if cfg.Retry.JitterMin != 50*time.Millisecond {
		t.Errorf("expected default jitter min, got %s", cfg.Retry.JitterMin)
	}
}

func TestLoadFromFileBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retry:\n  base_timeout: soon\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SDSS_INPUT", "env.csv")
	t.Setenv("SDSS_BATCH_SIZE", "7")
	t.Setenv("SDSS_RETRY_BASE_TIMEOUT", "45s")
	t.Setenv("SDSS_ID_COLUMN", "objid")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Input != "env.csv" {
		t.Errorf("expected input 'env.csv', got %q", cfg.Input)
	}
	if cfg.BatchSize != 7 {
		t.Errorf("expected batch size 7, got %d", cfg.BatchSize)
	}
	if cfg.Retry.BaseTimeout != 45*time.Second {
		t.Errorf("expected 45s base timeout, got %s", cfg.Retry.BaseTimeout)
	}
	if cfg.Columns.ID != "objid" {
		t.Errorf("expected id column 'objid', got %q", cfg.Columns.ID)
	}
}

func TestMergePrecedence(t *testing.T) {
	base := Default()
	base.Input = "file.csv"
	base.BatchSize = 20

	merged := base.Merge(Config{Input: "flag.csv"})

	if merged.Input != "flag.csv" {
		t.Errorf("expected override to win, got %q", merged.Input)
	}
	if merged.BatchSize != 20 {
		t.Errorf("expected zero override to be ignored, got %d", merged.BatchSize)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Input = "in.csv"
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing input", func(c *Config) { c.Input = "" }, "input"},
		{"missing output", func(c *Config) { c.Output = "" }, "output"},
		{"bad batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"bad attempts", func(c *Config) { c.Retry.Attempts = -1 }, "attempts"},
		{"bad timeout", func(c *Config) { c.Retry.BaseTimeout = 0 }, "base_timeout"},
		{"bad jitter", func(c *Config) { c.Retry.JitterMax = c.Retry.JitterMin - 1 }, "jitter"},
		{"bad pixels", func(c *Config) { c.Cutout.Pixels = 0 }, "pixels"},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Input = "in.csv"
		tt.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}
