// Package config loads the engine's tunable parameters from YAML into
// a struct with `yaml:"..."` tags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunables: default isolation level,
// lock-retry budget, deadlock sweep mode, and variance/percentile
// defaults. engine.New keeps the Config it is given, but no engine,
// transaction, or aggregate code reads these fields: implicit
// transactions always use txn.Serializable, and aggregates take their
// sample flag and percentile from each table.AggregateSpec.
type Config struct {
	DefaultIsolation string  `yaml:"default_isolation"` // read_uncommitted|read_committed|repeatable_read|serializable
	LockRetryBudget  int     `yaml:"lock_retry_budget"`
	DeadlockSweep    string  `yaml:"deadlock_sweep"` // "manual" or "periodic"
	VarianceSample   bool    `yaml:"variance_sample_default"`
	PercentileP      float64 `yaml:"percentile_default_p"`
}

// Default returns the engine's built-in configuration, used when no
// config file is supplied.
func Default() *Config {
	return &Config{
		DefaultIsolation: "serializable",
		LockRetryBudget:  3,
		DeadlockSweep:    "manual",
		VarianceSample:   false,
		PercentileP:      50,
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
