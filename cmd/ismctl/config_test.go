package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "ismctl.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))
	return filename
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, backendSim, cfg.Backend)
	assert.Equal(t, 100, cfg.Driver.ReadTimeoutMs)
	assert.Equal(t, "lazy", cfg.Driver.InitPolicy)
}

func TestLoadConfigFile(t *testing.T) {
	filename := writeConfig(t, `
backend: periph
wifi:
  ssid: lab
  password: secret123
bus:
  port: /dev/spidev0.0
  frequencyHz: 4000000
driver:
  readTimeoutMs: 250
  initPolicy: explicit
log:
  level: debug
  file: /tmp/ismctl.log
`)
	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, backendPeriph, cfg.Backend)
	assert.Equal(t, "lab", cfg.WiFi.SSID)
	assert.Equal(t, "/dev/spidev0.0", cfg.Bus.Port)
	assert.EqualValues(t, 4_000_000, cfg.Bus.FrequencyHz)
	assert.Equal(t, "GPIO8", cfg.Bus.CS, "unset fields keep defaults")
	assert.Equal(t, "explicit", cfg.Driver.InitPolicy)
	assert.Equal(t, 250, int(cfg.Driver.readTimeout().Milliseconds()))
	assert.Equal(t, "ismctl", cfg.MQTT.ClientID)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	filename := writeConfig(t, "wifi:\n  ssid: fromfile\n")
	t.Setenv("ISMCTL_SSID", "fromenv")
	t.Setenv("ISMCTL_PASSWORD", "envpass1")
	t.Setenv("ISMCTL_LOG_LEVEL", "trace")
	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.WiFi.SSID)
	assert.Equal(t, "envpass1", cfg.WiFi.Password)
	lvl, err := parseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug-1, lvl)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	for name, content := range map[string]string{
		"unknown field": "wifi:\n  sid: typo\n",
		"backend":       "backend: serial\n",
		"long ssid":     "wifi:\n  ssid: abcdefghijklmnopqrstuvwxyz0123456\n",
		"timeout":       "driver:\n  readTimeoutMs: -1\n",
		"policy":        "driver:\n  initPolicy: eager\n",
		"level":         "log:\n  level: loud\n",
		"periph pins":   "backend: periph\nbus:\n  cs: \"\"\n",
	} {
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err, name)
	}
}
