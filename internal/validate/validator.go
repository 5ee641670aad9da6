// Package validate runs read-only sanity checks against a populated
// database. It never mutates data.
package validate

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/nutridb/internal/store"
)

// Config configures the validator thresholds.
type Config struct {
	// MinFoods is the expected lower bound on food records.
	// Default: 7000 (a full SR Legacy run yields ~7,793).
	MinFoods int

	// MinAvgNutrients is the minimum average nutrient rows per food.
	// Default: 20.
	MinAvgNutrients float64

	// MaxSearchLatency is the ceiling for the sample full-text query.
	// Default: 50ms.
	MaxSearchLatency time.Duration

	// SampleQuery is the free-text query used for the latency check.
	// Default: "chicken".
	SampleQuery string
}

// DefaultConfig returns the thresholds for a full catalog run.
func DefaultConfig() *Config {
	return &Config{
		MinFoods:         7000,
		MinAvgNutrients:  20,
		MaxSearchLatency: 50 * time.Millisecond,
		SampleQuery:      "chicken",
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.MinFoods == 0 {
		c.MinFoods = defaults.MinFoods
	}
	if c.MinAvgNutrients == 0 {
		c.MinAvgNutrients = defaults.MinAvgNutrients
	}
	if c.MaxSearchLatency == 0 {
		c.MaxSearchLatency = defaults.MaxSearchLatency
	}
	if c.SampleQuery == "" {
		c.SampleQuery = defaults.SampleQuery
	}
}

// Check is one named validation outcome.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Report is the pass/fail summary of a validation run.
type Report struct {
	Checks []Check
	Passed bool
}

// Validator checks a populated store against the configured thresholds.
type Validator struct {
	config *Config
	store  *store.Store
	logger *zap.Logger
}

// NewValidator creates a validator over an opened store.
func NewValidator(cfg *Config, st *store.Store, logger *zap.Logger) (*Validator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	if st == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Validator{config: cfg, store: st, logger: logger}, nil
}

// Run executes all checks and returns the aggregated report.
func (v *Validator) Run() (*Report, error) {
	report := &Report{Passed: true}
	add := func(c Check) {
		report.Checks = append(report.Checks, c)
		if !c.Passed {
			report.Passed = false
		}
	}

	foods, err := v.store.FoodCount()
	if err != nil {
		return nil, fmt.Errorf("food count check: %w", err)
	}
	add(Check{
		Name:   "food_count",
		Passed: foods >= v.config.MinFoods,
		Detail: fmt.Sprintf("%d foods (minimum %d)", foods, v.config.MinFoods),
	})

	avg, err := v.store.AvgNutrientsPerFood()
	if err != nil {
		return nil, fmt.Errorf("nutrient coverage check: %w", err)
	}
	add(Check{
		Name:   "avg_nutrients_per_food",
		Passed: avg >= v.config.MinAvgNutrients,
		Detail: fmt.Sprintf("%.1f nutrients per food (minimum %.1f)", avg, v.config.MinAvgNutrients),
	})

	ids, latency, err := v.store.Search(v.config.SampleQuery, 10)
	if err != nil {
		return nil, fmt.Errorf("search latency check: %w", err)
	}
	add(Check{
		Name:   "search_latency",
		Passed: latency <= v.config.MaxSearchLatency,
		Detail: fmt.Sprintf("%q took %s for %d results (ceiling %s)", v.config.SampleQuery, latency, len(ids), v.config.MaxSearchLatency),
	})

	for _, c := range report.Checks {
		v.logger.Info("validation check",
			zap.String("check", c.Name),
			zap.Bool("passed", c.Passed),
			zap.String("detail", c.Detail),
		)
	}

	return report, nil
}
