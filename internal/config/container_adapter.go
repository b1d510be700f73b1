package config

import (
	"github.com/garyjia/hospital-itsm/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Outbox: container.OutboxConfig{
			PollInterval: c.Outbox.PollInterval,
			BatchSize:    c.Outbox.BatchSize,
			MaxAttempts:  c.Outbox.MaxAttempts,
			MaxBackoff:   c.Outbox.MaxBackoff,
			JitterMax:    c.Outbox.JitterMax,
			LockTTL:      c.Outbox.LockTTL,
			Volatile:     c.Outbox.Volatile,
		},
		Workflow: container.WorkflowConfig{
			AutoSelectByType: c.Workflow.AutoSelectByType,
			AdminRole:        c.Workflow.AdminRole,
			RoleHierarchy:    c.Workflow.RoleHierarchy,
		},
	}
}
