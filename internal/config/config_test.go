package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjelva/netwarden/internal/logging"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "192.168.1.0/24", cfg.Engine.Network)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.True(t, cfg.API.Enabled)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.False(t, cfg.HistoryEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
engine:
  network: 10.0.0.0/24
  timeout: 2m
api:
  port: 9090
logging:
  level: debug
  format: json
scheduler:
  enabled: true
  schedule: "@hourly"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.0/24", cfg.Engine.Network)
	assert.Equal(t, 2*time.Minute, cfg.Engine.Timeout)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.Equal(t, logging.FormatJSON, cfg.Logging.Format)
	assert.True(t, cfg.Scheduler.Enabled)
	// Untouched sections keep their defaults.
	assert.Equal(t, "public", cfg.Engine.SNMPCommunity)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing network",
			mutate:  func(c *Config) { c.Engine.Network = "" },
			wantErr: "network",
		},
		{
			name:    "api port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "api port ignored when disabled",
			mutate:  func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
			wantErr: "",
		},
		{
			name:    "database without host",
			mutate:  func(c *Config) { c.Database.Database = "netwarden"; c.Database.Host = "" },
			wantErr: "database host",
		},
		{
			name: "database without username",
			mutate: func(c *Config) {
				c.Database.Database = "netwarden"
			},
			wantErr: "database username",
		},
		{
			name:    "scheduler enabled without schedule",
			mutate:  func(c *Config) { c.Scheduler.Enabled = true; c.Scheduler.Schedule = "" },
			wantErr: "schedule",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
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

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Engine.Network = "172.16.0.0/16"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
