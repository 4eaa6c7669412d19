package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ble", cfg.Transport)
	assert.Equal(t, "hci0", cfg.Bluetooth.Adapter)
	assert.Equal(t, uint8(1), cfg.Bluetooth.SPPChannel)
	assert.Equal(t, 10*time.Second, cfg.Retry.Cooldown)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 2*time.Second, cfg.Heartbeat.Interval)
	assert.Equal(t, "ESP32", cfg.Heartbeat.Label)
	assert.Equal(t, "none", cfg.Display.Backend)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, `
target: "a4:c1:38:00:11:22"
transport: spp
bluetooth:
  adapter: hci1
  spp_channel: 3
  connect_timeout: 20s
retry:
  cooldown: 5s
serial:
  device: /dev/ttyUSB0
display:
  backend: png
  png_path: /tmp/bms/status.png
server:
  enabled: true
  port: 9100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "a4:c1:38:00:11:22", cfg.Target)
	assert.Equal(t, "spp", cfg.Transport)
	assert.Equal(t, "hci1", cfg.Bluetooth.Adapter)
	assert.Equal(t, uint8(3), cfg.Bluetooth.SPPChannel)
	assert.Equal(t, 20*time.Second, cfg.Bluetooth.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Retry.Cooldown)
	assert.Equal(t, time.Second, cfg.Retry.PollInterval, "unset keys keep their defaults")
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, "png", cfg.Display.Backend)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 9100, cfg.Server.Port)

	mac, err := cfg.TargetMAC()
	require.NoError(t, err)
	assert.Equal(t, "A4:C1:38:00:11:22", mac.String())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "transport: spp\nretry:\n  cooldown: 5s\n")

	t.Setenv("BMS_LOCK_TRANSPORT", "ble")
	t.Setenv("BMS_LOCK_RETRY_COOLDOWN", "30s")
	t.Setenv("BMS_LOCK_SERIAL_BAUD__RATE", "9600")
	t.Setenv("BMS_LOCK_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ble", cfg.Transport)
	assert.Equal(t, 30*time.Second, cfg.Retry.Cooldown)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeConfig(t, "retry: [unclosed\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "failed to load config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	path := writeConfig(t, "transport: zigbee\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "transport must be one of")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad target", func(c *Config) { c.Target = "not-a-mac" }, "target"},
		{"spp channel zero", func(c *Config) { c.Bluetooth.SPPChannel = 0 }, "spp_channel"},
		{"spp channel too high", func(c *Config) { c.Bluetooth.SPPChannel = 31 }, "spp_channel"},
		{"no adapter", func(c *Config) { c.Bluetooth.Adapter = "" }, "bluetooth.adapter"},
		{"zero cooldown", func(c *Config) { c.Retry.Cooldown = 0 }, "retry.cooldown"},
		{"zero poll", func(c *Config) { c.Retry.PollInterval = 0 }, "retry.poll_interval"},
		{"zero timeout", func(c *Config) { c.Bluetooth.ConnectTimeout = 0 }, "connect_timeout"},
		{"zero baud", func(c *Config) { c.Serial.BaudRate = 0 }, "baud_rate"},
		{"zero heartbeat", func(c *Config) { c.Heartbeat.Interval = 0 }, "heartbeat.interval"},
		{"unknown display", func(c *Config) { c.Display.Backend = "oled" }, "display.backend"},
		{"png without path", func(c *Config) { c.Display.Backend = "png"; c.Display.PNGPath = "" }, "png_path"},
		{"server port", func(c *Config) { c.Server.Enabled = true; c.Server.Port = 70000 }, "server.port"},
		{"disabled server ignores port", func(c *Config) { c.Server.Port = 0 }, ""},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_TargetMACRequired(t *testing.T) {
	_, err := defaultConfig().TargetMAC()
	assert.ErrorContains(t, err, "BMS_LOCK_TARGET")
}
