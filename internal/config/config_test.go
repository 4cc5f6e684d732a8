package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/printwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	pinArgs(t)
	path := filepath.Join(t.TempDir(), "printwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// pinArgs keeps the test binary's own flags out of Load's flag parsing.
func pinArgs(t *testing.T) {
	t.Helper()
	oldArgs := os.Args
	os.Args = []string{"printwatch"}
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoad(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 10
source_url = "http://printer.local:5000/api/v1/printer/status"
fetch_timeout = 3
database = "/var/lib/printwatch/printer_data.db"
status_file = "/run/printwatch/status.json"
alerts_log = "/var/log/printwatch/alerts.log"
history_limit = 100
history_minutes = 30
log_level = "debug"
`)
	t.Setenv("PRINTWATCH_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Interval, "Expected Interval 10")
	assert.Equal(t, "http://printer.local:5000/api/v1/printer/status", cfg.SourceURL)
	assert.Equal(t, 3, cfg.FetchTimeout, "Expected FetchTimeout 3")
	assert.Equal(t, "/var/lib/printwatch/printer_data.db", cfg.Database)
	assert.Equal(t, "/run/printwatch/status.json", cfg.StatusFile)
	assert.Equal(t, "/var/log/printwatch/alerts.log", cfg.AlertsLog)
	assert.Equal(t, 100, cfg.HistoryLimit, "Expected HistoryLimit 100")
	assert.Equal(t, 30, cfg.HistoryMinutes, "Expected HistoryMinutes 30")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
}

func TestLoadDefaults(t *testing.T) {
	pinArgs(t)
	// Point at an empty temp dir so no stray config file is picked up
	t.Setenv("PRINTWATCH_CONFIG", filepath.Join(t.TempDir(), "printwatch.toml"))

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 5, cfg.Interval, "Expected default Interval 5")
	assert.Equal(t, 5, cfg.FetchTimeout, "Expected default FetchTimeout 5")
	assert.Equal(t, "http://localhost:5000/api/v1/printer/status", cfg.SourceURL)
	assert.Equal(t, "printer_data.db", cfg.Database)
	assert.Equal(t, "status.json", cfg.StatusFile)
	assert.Equal(t, "alerts.log", cfg.AlertsLog)
	assert.Equal(t, 200, cfg.HistoryLimit, "Expected default HistoryLimit 200")
	assert.Equal(t, 10, cfg.HistoryMinutes, "Expected default HistoryMinutes 10")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfigFile(t, `
This is not a valid TOML file
`)
	t.Setenv("PRINTWATCH_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfigFile(t, `
log_level = "invalid"
`)
	t.Setenv("PRINTWATCH_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_log_level")
}

func TestInvalidInterval(t *testing.T) {
	configPath := writeConfigFile(t, `
interval = 0
`)
	t.Setenv("PRINTWATCH_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_interval")
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("PRINTWATCH_CONFIG", filepath.Join(t.TempDir(), "printwatch.toml"))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}
