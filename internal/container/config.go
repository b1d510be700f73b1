// Package container wires the hospital ITSM components and owns their
// start and shutdown order.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Outbox   OutboxConfig
	Workflow WorkflowConfig

	// DisableWorkers skips the outbox relay, for one-shot commands
	DisableWorkers bool
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to the SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SkipMigrations leaves the schema alone on start
	SkipMigrations bool
}

// OutboxConfig holds relay settings.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	MaxBackoff   time.Duration
	JitterMax    time.Duration
	LockTTL      time.Duration

	// Volatile skips the outbox table and the relay
	Volatile bool
}

// WorkflowConfig holds engine and role settings.
type WorkflowConfig struct {
	// AutoSelectByType binds the active workflow of the request type when
	// no workflow is given
	AutoSelectByType bool

	// AdminRole satisfies every step role
	AdminRole string

	// RoleHierarchy maps a role to the roles it may act for
	RoleHierarchy map[string][]string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/itsm.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Outbox: OutboxConfig{
			PollInterval: time.Second,
			BatchSize:    100,
			MaxAttempts:  25,
			MaxBackoff:   time.Minute,
			JitterMax:    500 * time.Millisecond,
			LockTTL:      time.Minute,
		},
		Workflow: WorkflowConfig{
			AdminRole: "admin",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be positive")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox.max_attempts must be positive")
	}
	return nil
}
