// Package config provides configuration loading for nutridb.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and hardcoded defaults.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete nutridb configuration.
type Config struct {
	API        APIConfig        `koanf:"api"`
	Database   DatabaseConfig   `koanf:"database"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Validation ValidationConfig `koanf:"validation"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// APIConfig holds FoodData Central client configuration.
type APIConfig struct {
	Key        Secret   `koanf:"key"`
	BaseURL    string   `koanf:"base_url"`
	Timeout    Duration `koanf:"timeout"`
	DataType   string   `koanf:"data_type"`
	MaxRetries int      `koanf:"max_retries"`
}

// DatabaseConfig holds the SQLite output location.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// CheckpointConfig holds checkpoint persistence configuration.
type CheckpointConfig struct {
	Path      string `koanf:"path"`
	SaveEvery int    `koanf:"save_every"`
}

// RateLimitConfig holds the call-budget configuration.
type RateLimitConfig struct {
	Ceiling      int      `koanf:"ceiling"`
	Window       Duration `koanf:"window"`
	PaceInterval Duration `koanf:"pace_interval"`
}

// PipelineConfig holds run-shaping configuration.
type PipelineConfig struct {
	TargetCount int    `koanf:"target_count"`
	PageSize    int    `koanf:"page_size"`
	Query       string `koanf:"query"`
	LockPath    string `koanf:"lock_path"`
}

// ValidationConfig holds post-run validation thresholds.
type ValidationConfig struct {
	MinFoods         int      `koanf:"min_foods"`
	MinAvgNutrients  float64  `koanf:"min_avg_nutrients"`
	MaxSearchLatency Duration `koanf:"max_search_latency"`
	SampleQuery      string   `koanf:"sample_query"`
}

// LoggingConfig holds logger construction settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks structural validity. The API key is deliberately not
// required here: read-only commands (stats, validate) run without one.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path must not be empty")
	}
	if c.Checkpoint.Path == "" {
		return errors.New("checkpoint path must not be empty")
	}
	if c.Checkpoint.SaveEvery < 1 {
		return fmt.Errorf("checkpoint save interval must be positive, got %d", c.Checkpoint.SaveEvery)
	}
	if c.RateLimit.Ceiling < 1 {
		return fmt.Errorf("rate limit ceiling must be positive, got %d", c.RateLimit.Ceiling)
	}
	if c.RateLimit.Window.Duration() <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.Pipeline.TargetCount < 0 {
		return fmt.Errorf("target count must not be negative, got %d", c.Pipeline.TargetCount)
	}
	if c.Pipeline.PageSize < 1 || c.Pipeline.PageSize > 200 {
		return fmt.Errorf("page size must be 1-200, got %d", c.Pipeline.PageSize)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.API.MaxRetries)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.nal.usda.gov/fdc/v1"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(30 * time.Second)
	}
	if cfg.API.DataType == "" {
		cfg.API.DataType = "SR Legacy"
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = 3
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/nutrients.db"
	}
	if cfg.Checkpoint.Path == "" {
		cfg.Checkpoint.Path = "data/checkpoint.json"
	}
	if cfg.Checkpoint.SaveEvery == 0 {
		cfg.Checkpoint.SaveEvery = 50
	}

	if cfg.RateLimit.Ceiling == 0 {
		cfg.RateLimit.Ceiling = 900
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = Duration(time.Hour)
	}
	if cfg.RateLimit.PaceInterval == 0 {
		cfg.RateLimit.PaceInterval = Duration(100 * time.Millisecond)
	}

	if cfg.Pipeline.PageSize == 0 {
		cfg.Pipeline.PageSize = 200
	}
	if cfg.Pipeline.LockPath == "" {
		cfg.Pipeline.LockPath = cfg.Database.Path + ".lock"
	}

	if cfg.Validation.MinFoods == 0 {
		cfg.Validation.MinFoods = 7000
	}
	if cfg.Validation.MinAvgNutrients == 0 {
		cfg.Validation.MinAvgNutrients = 20
	}
	if cfg.Validation.MaxSearchLatency == 0 {
		cfg.Validation.MaxSearchLatency = Duration(50 * time.Millisecond)
	}
	if cfg.Validation.SampleQuery == "" {
		cfg.Validation.SampleQuery = "chicken"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
