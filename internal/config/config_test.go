package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "data/itsm.db", cfg.Database.Path)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 25, cfg.Outbox.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
	assert.False(t, cfg.Workflow.AutoSelectByType)
	assert.Equal(t, "admin", cfg.Workflow.AdminRole)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  mode: debug
database:
  path: /tmp/itsm-test.db
outbox:
  batch_size: 20
  max_backoff: 30s
workflow:
  auto_select_by_type: true
  role_hierarchy:
    it_manager: [it_staff]
    manager: [staff]
`)
	t.Setenv("ITSM_SERVER_PORT", "9100")
	t.Setenv("ITSM_OUTBOX_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "/tmp/itsm-test.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
	assert.Equal(t, 7, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Outbox.MaxBackoff)
	assert.True(t, cfg.Workflow.AutoSelectByType)
	assert.Equal(t, []string{"it_staff"}, cfg.Workflow.RoleHierarchy["it_manager"])
	assert.Equal(t, "0.0.0.0:9100", cfg.Server.Addr())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080, Mode: "release"},
			Database: DatabaseConfig{Path: "itsm.db"},
			Logger:   LoggerConfig{OutputPath: "stdout"},
			Outbox:   OutboxConfig{BatchSize: 10, MaxAttempts: 3, PollInterval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"empty log output", func(c *Config) { c.Logger.OutputPath = "" }, "logger.output_path"},
		{"zero batch size", func(c *Config) { c.Outbox.BatchSize = 0 }, "outbox.batch_size"},
		{"zero attempts", func(c *Config) { c.Outbox.MaxAttempts = 0 }, "outbox.max_attempts"},
		{"negative jitter", func(c *Config) { c.Outbox.JitterMax = -time.Second }, "outbox.jitter_max"},
		{"self inheritance", func(c *Config) {
			c.Workflow.RoleHierarchy = map[string][]string{"staff": {"staff"}}
		}, "role_hierarchy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Workflow.RoleHierarchy = map[string][]string{"manager": {"staff"}}

	cc := cfg.ToContainerConfig()
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Outbox.BatchSize, cc.Outbox.BatchSize)
	assert.Equal(t, cfg.Outbox.LockTTL, cc.Outbox.LockTTL)
	assert.Equal(t, "admin", cc.Workflow.AdminRole)
	assert.Equal(t, []string{"staff"}, cc.Workflow.RoleHierarchy["manager"])
	assert.NoError(t, cc.Validate())
}
