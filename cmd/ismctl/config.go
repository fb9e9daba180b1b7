package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the configuration of ismctl.
type Config struct {
	Backend string       `yaml:"backend"`
	WiFi    WiFiConfig   `yaml:"wifi"`
	Bus     BusConfig    `yaml:"bus"`
	Driver  DriverConfig `yaml:"driver"`
	Log     LogConfig    `yaml:"log"`
	MQTT    MQTTConfig   `yaml:"mqtt"`
}

// WiFiConfig holds the access point credentials.
type WiFiConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

// BusConfig holds the host wiring used by the periph backend.
type BusConfig struct {
	Port        string `yaml:"port"`
	FrequencyHz int64  `yaml:"frequencyHz"`
	CS          string `yaml:"cs"`
	Ready       string `yaml:"ready"`
	Wake        string `yaml:"wake"`
	Reset       string `yaml:"reset"`
}

// DriverConfig holds driver settings.
type DriverConfig struct {
	ReadTimeoutMs int    `yaml:"readTimeoutMs"`
	InitPolicy    string `yaml:"initPolicy"`
}

// LogConfig selects log level and destination. An empty File logs to
// the console, otherwise JSON records go to a rotated file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// MQTTConfig holds the broker used by the mqtt subcommand.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Topic    string `yaml:"topic"`
}

const (
	backendSim    = "sim"
	backendPeriph = "periph"
)

// LoadConfig returns the defaults overridden by the YAML file at filename,
// if not empty, and then by environment variables.
func LoadConfig(filename string) (*Config, error) {
	cfg := defaultConfig()
	if filename != "" {
		if err := loadFromFile(cfg, filename); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", filename, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Backend: backendSim,
		Bus: BusConfig{
			FrequencyHz: 2_000_000,
			CS:          "GPIO8",
			Ready:       "GPIO25",
			Wake:        "GPIO24",
			Reset:       "GPIO23",
		},
		Driver: DriverConfig{
			ReadTimeoutMs: 100,
			InitPolicy:    "lazy",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		MQTT: MQTTConfig{
			Broker:   "test.mosquitto.org:1883",
			ClientID: "ismctl",
			Topic:    "ism43362-test",
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ISMCTL_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("ISMCTL_SSID"); v != "" {
		cfg.WiFi.SSID = v
	}
	if v := os.Getenv("ISMCTL_PASSWORD"); v != "" {
		cfg.WiFi.Password = v
	}
	if v := os.Getenv("ISMCTL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Backend {
	case backendSim:
	case backendPeriph:
		if cfg.Bus.CS == "" || cfg.Bus.Ready == "" || cfg.Bus.Wake == "" || cfg.Bus.Reset == "" {
			return fmt.Errorf("periph backend requires cs, ready, wake and reset pins")
		}
		if cfg.Bus.FrequencyHz <= 0 {
			return fmt.Errorf("invalid bus frequency %d", cfg.Bus.FrequencyHz)
		}
	default:
		return fmt.Errorf("invalid backend %q, must be one of: %v", cfg.Backend, []string{backendSim, backendPeriph})
	}
	if len(cfg.WiFi.SSID) > 32 {
		return fmt.Errorf("ssid longer than 32 bytes")
	}
	if len(cfg.WiFi.Password) > 64 {
		return fmt.Errorf("password longer than 64 bytes")
	}
	if cfg.Driver.ReadTimeoutMs < 0 || cfg.Driver.ReadTimeoutMs > 30_000 {
		return fmt.Errorf("read timeout %dms is outside range [0, 30000]", cfg.Driver.ReadTimeoutMs)
	}
	switch cfg.Driver.InitPolicy {
	case "lazy", "explicit":
	default:
		return fmt.Errorf("invalid init policy %q", cfg.Driver.InitPolicy)
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

func (d DriverConfig) readTimeout() time.Duration {
	return time.Duration(d.ReadTimeoutMs) * time.Millisecond
}

// levelTrace matches the most verbose level of the driver.
const levelTrace = slog.LevelDebug - 1

func parseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return levelTrace, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
