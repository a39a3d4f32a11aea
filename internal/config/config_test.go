package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/craftlist-server/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "craftlist.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Engine.Cascade)
	assert.Equal(t, 4096, cfg.Engine.RecipeCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Pricing.TTL)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/craftlist/data.db
engine:
  cascade: true
  source_preference: [north, south]
pricing:
  ttl: 90s
  refresh_workers: 3
metrics:
  enabled: true
  address: 0.0.0.0:9100
`)
	t.Setenv("CRAFTLIST_PRICING_REFRESH_WORKERS", "8")
	t.Setenv("CRAFTLIST_LOGGING_LEVEL", "debug")

	cfg, err := config.LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/craftlist/data.db", cfg.Database.Path)
	assert.True(t, cfg.Engine.Cascade)
	assert.Equal(t, []string{"north", "south"}, cfg.Engine.SourcePreference)
	assert.Equal(t, 90*time.Second, cfg.Pricing.TTL)
	assert.Equal(t, 8, cfg.Pricing.RefreshWorkers, "environment beats the file")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:9100", cfg.Metrics.Address)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
	}{
		{name: "unknown log level", body: "logging:\n  level: loud\n", key: "logging.level"},
		{name: "file output without path", body: "logging:\n  output: file\n", key: "logging.file_path"},
		{name: "too many workers", body: "pricing:\n  refresh_workers: 500\n", key: "pricing.refresh_workers: 500 violates max=64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, closeLog, err := config.NewLogger(config.LoggingConfig{
		Level:    "warn",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "item_id", 42)
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"item_id":42`)
}
