package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the sdssextract CLI.
type Config struct {
	Input     string       `yaml:"input"`
	Output    string       `yaml:"output"`
	Bucket    string       `yaml:"bucket"`
	BatchSize int          `yaml:"batch_size"`
	Progress  bool         `yaml:"progress"`
	UserAgent string       `yaml:"user_agent"`
	Columns   ColumnConfig `yaml:"columns"`
	Cutout    CutoutConfig `yaml:"cutout"`
	Retry     RetryConfig  `yaml:"retry"`
}

// ColumnConfig names the input table columns. Empty values are resolved by
// prompting the user.
type ColumnConfig struct {
	RA  string `yaml:"ra"`
	Dec string `yaml:"dec"`
	ID  string `yaml:"id"`
}

// CutoutConfig defines the shape of the requested image cutouts.
type CutoutConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Pixels      int     `yaml:"pixels"`
	FieldArcmin float64 `yaml:"field_arcmin"`
}

// RetryConfig defines per-item retry behavior.
type RetryConfig struct {
	Attempts    int           `yaml:"attempts"`
	BaseTimeout time.Duration `yaml:"base_timeout"`
	JitterMin   time.Duration `yaml:"jitter_min"`
	JitterMax   time.Duration `yaml:"jitter_max"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Output:    "images",
		BatchSize: 10,
		Cutout: CutoutConfig{
			Pixels:      256,
			FieldArcmin: 1,
		},
		Retry: RetryConfig{
			Attempts:    5,
			BaseTimeout: 180 * time.Second,
			JitterMin:   50 * time.Millisecond,
			JitterMax:   5 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Input     string          `yaml:"input"`
	Output    string          `yaml:"output"`
	Bucket    string          `yaml:"bucket"`
	BatchSize int             `yaml:"batch_size"`
	Progress  bool            `yaml:"progress"`
	UserAgent string          `yaml:"user_agent"`
	Columns   ColumnConfig    `yaml:"columns"`
	Cutout    CutoutConfig    `yaml:"cutout"`
	Retry     yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts    int    `yaml:"attempts"`
	BaseTimeout string `yaml:"base_timeout"`
	JitterMin   string `yaml:"jitter_min"`
	JitterMax   string `yaml:"jitter_max"`
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Input != "" {
		cfg.Input = yc.Input
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.BatchSize != 0 {
		cfg.BatchSize = yc.BatchSize
	}
	cfg.Progress = yc.Progress
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.Columns.RA != "" {
		cfg.Columns.RA = yc.Columns.RA
	}
	if yc.Columns.Dec != "" {
		cfg.Columns.Dec = yc.Columns.Dec
	}
	if yc.Columns.ID != "" {
		cfg.Columns.ID = yc.Columns.ID
	}
	if yc.Cutout.BaseURL != "" {
		cfg.Cutout.BaseURL = yc.Cutout.BaseURL
	}
	if yc.Cutout.Pixels != 0 {
		cfg.Cutout.Pixels = yc.Cutout.Pixels
	}
	if yc.Cutout.FieldArcmin != 0 {
		cfg.Cutout.FieldArcmin = yc.Cutout.FieldArcmin
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.BaseTimeout != "" {
		d, err := time.ParseDuration(yc.Retry.BaseTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.base_timeout: %w", err)
		}
		cfg.Retry.BaseTimeout = d
	}
	if yc.Retry.JitterMin != "" {
		d, err := time.ParseDuration(yc.Retry.JitterMin)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.jitter_min: %w", err)
		}
		cfg.Retry.JitterMin = d
	}
	if yc.Retry.JitterMax != "" {
		d, err := time.ParseDuration(yc.Retry.JitterMax)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.jitter_max: %w", err)
		}
		cfg.Retry.JitterMax = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables with the
// SDSS_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SDSS_INPUT"); v != "" {
		c.Input = v
	}
	if v := os.Getenv("SDSS_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("SDSS_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("SDSS_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SDSS_BATCH_SIZE: %w", err)
		}
		c.BatchSize = n
	}
	if v := os.Getenv("SDSS_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("SDSS_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SDSS_RA_COLUMN"); v != "" {
		c.Columns.RA = v
	}
	if v := os.Getenv("SDSS_DEC_COLUMN"); v != "" {
		c.Columns.Dec = v
	}
	if v := os.Getenv("SDSS_ID_COLUMN"); v != "" {
		c.Columns.ID = v
	}
	if v := os.Getenv("SDSS_CUTOUT_URL"); v != "" {
		c.Cutout.BaseURL = v
	}
	if v := os.Getenv("SDSS_CUTOUT_PIXELS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SDSS_CUTOUT_PIXELS: %w", err)
		}
		c.Cutout.Pixels = n
	}
	if v := os.Getenv("SDSS_CUTOUT_FIELD_ARCMIN"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse SDSS_CUTOUT_FIELD_ARCMIN: %w", err)
		}
		c.Cutout.FieldArcmin = f
	}
	if v := os.Getenv("SDSS_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SDSS_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("SDSS_RETRY_BASE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SDSS_RETRY_BASE_TIMEOUT: %w", err)
		}
		c.Retry.BaseTimeout = d
	}
	if v := os.Getenv("SDSS_RETRY_JITTER_MIN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SDSS_RETRY_JITTER_MIN: %w", err)
		}
		c.Retry.JitterMin = d
	}
	if v := os.Getenv("SDSS_RETRY_JITTER_MAX"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SDSS_RETRY_JITTER_MAX: %w", err)
		}
		c.Retry.JitterMax = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("config: input is required")
	}
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if c.BatchSize <= 0 {
		return errors.New("config: batch_size must be positive")
	}
	if c.Cutout.Pixels <= 0 {
		return errors.New("config: cutout.pixels must be positive")
	}
	if c.Cutout.FieldArcmin <= 0 {
		return errors.New("config: cutout.field_arcmin must be positive")
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry.attempts must be positive")
	}
	if c.Retry.BaseTimeout <= 0 {
		return errors.New("config: retry.base_timeout must be positive")
	}
	if c.Retry.JitterMin < 0 || c.Retry.JitterMax < c.Retry.JitterMin {
		return errors.New("config: retry jitter bounds are invalid")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Input != "" {
		c.Input = override.Input
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.BatchSize != 0 {
		c.BatchSize = override.BatchSize
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Columns.RA != "" {
		c.Columns.RA = override.Columns.RA
	}
	if override.Columns.Dec != "" {
		c.Columns.Dec = override.Columns.Dec
	}
	if override.Columns.ID != "" {
		c.Columns.ID = override.Columns.ID
	}
	if override.Cutout.BaseURL != "" {
		c.Cutout.BaseURL = override.Cutout.BaseURL
	}
	if override.Cutout.Pixels != 0 {
		c.Cutout.Pixels = override.Cutout.Pixels
	}
	if override.Cutout.FieldArcmin != 0 {
		c.Cutout.FieldArcmin = override.Cutout.FieldArcmin
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.BaseTimeout != 0 {
		c.Retry.BaseTimeout = override.Retry.BaseTimeout
	}
	if override.Retry.JitterMin != 0 {
		c.Retry.JitterMin = override.Retry.JitterMin
	}
	if override.Retry.JitterMax != 0 {
		c.Retry.JitterMax = override.Retry.JitterMax
	}
	return c
}
