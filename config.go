package jobflow

import (
	"fmt"
	"time"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON, YAML, environment variables, etc. The zero-value is
// useful – all nested fields inherit their package defaults.
type Config struct {
	Gate        GateConfig        `json:"gate" yaml:"gate"`
	Executor    ExecutorConfig    `json:"executor" yaml:"executor"`
	Maintenance MaintenanceConfig `json:"maintenance" yaml:"maintenance"`
}

// GateConfig governs approval request ageing.
type GateConfig struct {
	// PendingExpiry is how long a request may stay pending before the
	// maintenance loop expires it.
	PendingExpiry time.Duration `json:"pendingExpiry" yaml:"pendingExpiry"`
	// Retention is how long decided requests are kept before cleanup.
	Retention time.Duration `json:"retention" yaml:"retention"`
}

// ExecutorConfig governs step execution.
type ExecutorConfig struct {
	// StepTimeout caps a single step method; zero disables the cap.
	StepTimeout time.Duration `json:"stepTimeout" yaml:"stepTimeout"`
}

// MaintenanceConfig governs the background expiry/cleanup loop.
type MaintenanceConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New via
// WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Gate: GateConfig{
			PendingExpiry: 72 * time.Hour,
			Retention:     30 * 24 * time.Hour,
		},
		Executor: ExecutorConfig{
			StepTimeout: time.Minute,
		},
		Maintenance: MaintenanceConfig{
			Interval: time.Minute,
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Gate.PendingExpiry <= 0 {
		return fmt.Errorf("gate.pendingExpiry must be > 0")
	}
	if c.Gate.Retention <= 0 {
		return fmt.Errorf("gate.retention must be > 0")
	}
	if c.Maintenance.Interval <= 0 {
		return fmt.Errorf("maintenance.interval must be > 0")
	}
	return nil
}
