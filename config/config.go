// Package config loads settings from an optional YAML file and BMS_LOCK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/viperML/bms-lock/bluetooth"
	"github.com/viperML/bms-lock/display"
	"github.com/viperML/bms-lock/serial"
)

// EnvPrefix is the prefix of environment overrides. BMS_LOCK_RETRY_COOLDOWN maps to
// retry.cooldown; a double underscore keeps a literal one (BMS_LOCK_SERIAL_BAUD__RATE).
const EnvPrefix = "BMS_LOCK_"

type Config struct {
	Target    string          `koanf:"target"`
	Transport string          `koanf:"transport"`
	Bluetooth BluetoothConfig `koanf:"bluetooth"`
	Retry     RetryConfig     `koanf:"retry"`
	Serial    SerialConfig    `koanf:"serial"`
	Heartbeat HeartbeatConfig `koanf:"heartbeat"`
	Display   DisplayConfig   `koanf:"display"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type BluetoothConfig struct {
	Adapter        string        `koanf:"adapter"`
	SPPChannel     uint8         `koanf:"spp_channel"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type RetryConfig struct {
	Cooldown     time.Duration `koanf:"cooldown"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

type SerialConfig struct {
	// Device is the serial port; empty writes to stdout.
	Device   string `koanf:"device"`
	BaudRate int    `koanf:"baud_rate"`
}

type HeartbeatConfig struct {
	Interval     time.Duration `koanf:"interval"`
	StartupDelay time.Duration `koanf:"startup_delay"`
	Label        string        `koanf:"label"`
}

type DisplayConfig struct {
	Backend  string `koanf:"backend"`
	FBDevice string `koanf:"fb_device"`
	PNGPath  string `koanf:"png_path"`
	Width    int    `koanf:"width"`
	Height   int    `koanf:"height"`
	Title    string `koanf:"title"`
}

type ServerConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// LoadConfig reads configPath (skipped when empty or missing), applies environment overrides
// and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", "%UNDERSCORE%")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "%UNDERSCORE%", "_")
}

func defaultConfig() *Config {
	return &Config{
		Transport: bluetooth.TransportBLE,
		Bluetooth: BluetoothConfig{
			Adapter:        bluetooth.DefaultAdapter,
			SPPChannel:     bluetooth.DefaultSPPChannel,
			ConnectTimeout: bluetooth.DefaultConnectTimeout,
		},
		Retry: RetryConfig{
			Cooldown:     bluetooth.DefaultRetryCooldown,
			PollInterval: bluetooth.DefaultPollInterval,
		},
		Serial: SerialConfig{
			BaudRate: serial.DefaultBaudRate,
		},
		Heartbeat: HeartbeatConfig{
			Interval:     serial.DefaultHeartbeatInterval,
			StartupDelay: serial.DefaultStartupDelay,
			Label:        serial.DefaultDeviceLabel,
		},
		Display: DisplayConfig{
			Backend: display.BackendNone,
			PNGPath: "status.png",
			Width:   320,
			Height:  240,
			Title:   "BMS Lock",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c *Config) Validate() error {
	if c.Target != "" {
		if _, err := bluetooth.ParseMAC(c.Target); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	if c.Transport != bluetooth.TransportSPP && c.Transport != bluetooth.TransportBLE {
		return fmt.Errorf("transport must be one of: spp, ble, got: %s", c.Transport)
	}
	if c.Bluetooth.Adapter == "" {
		return fmt.Errorf("bluetooth.adapter is required")
	}
	if c.Bluetooth.SPPChannel < 1 || c.Bluetooth.SPPChannel > 30 {
		return fmt.Errorf("bluetooth.spp_channel must be between 1 and 30, got: %d", c.Bluetooth.SPPChannel)
	}
	if c.Bluetooth.ConnectTimeout <= 0 {
		return fmt.Errorf("bluetooth.connect_timeout must be positive")
	}
	if c.Retry.Cooldown <= 0 {
		return fmt.Errorf("retry.cooldown must be positive")
	}
	if c.Retry.PollInterval <= 0 {
		return fmt.Errorf("retry.poll_interval must be positive")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got: %d", c.Serial.BaudRate)
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("heartbeat.interval must be positive")
	}
	if c.Heartbeat.StartupDelay < 0 {
		return fmt.Errorf("heartbeat.startup_delay must not be negative")
	}

	backends := []string{display.BackendNone, display.BackendFramebuffer, display.BackendPNG, display.BackendTUI}
	if !slices.Contains(backends, c.Display.Backend) {
		return fmt.Errorf("display.backend must be one of: %s, got: %s", strings.Join(backends, ", "), c.Display.Backend)
	}
	if c.Display.Backend == display.BackendPNG && c.Display.PNGPath == "" {
		return fmt.Errorf("display.png_path is required when display.backend is 'png'")
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return fmt.Errorf("display.width and display.height must not be negative")
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be either 'json' or 'console', got: %s", c.Logging.Format)
	}
	return nil
}

// TargetMAC parses the configured peer address; commands that connect require it.
func (c *Config) TargetMAC() (bluetooth.MAC, error) {
	if c.Target == "" {
		return bluetooth.MAC{}, fmt.Errorf("no target address configured (set target or %sTARGET)", EnvPrefix)
	}
	return bluetooth.ParseMAC(c.Target)
}
