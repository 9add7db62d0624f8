package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// Collection settings
	SampleInterval        = 1 * time.Second
	OverviewRefreshPeriod = 1 * time.Minute

	// Agent info (injected at build time via ldflags)
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Default file locations
	ConfigFilePath = "/etc/hostwatch/config.yaml"
	EnvFilePath    = "/etc/hostwatch/env"
)

// Environment overrides
const (
	EnvDebug            = "HOSTWATCH_DEBUG"
	EnvInterval         = "HOSTWATCH_INTERVAL"
	EnvInventoryBackend = "HOSTWATCH_INVENTORY_BACKEND"
)

// Config is the on-disk agent configuration
type Config struct {
	Interval  time.Duration   `yaml:"interval"`
	Overview  time.Duration   `yaml:"overview_refresh"`
	Inventory InventoryConfig `yaml:"inventory"`
	USB       USBConfig       `yaml:"usb"`
	Log       LogConfig       `yaml:"log"`
	Sink      SinkConfig      `yaml:"sink"`
}

// InventoryConfig selects and tunes the hardware inventory backend
type InventoryConfig struct {
	Backend string        `yaml:"backend"` // auto, profiler or ghw
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

type USBConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// SinkConfig controls where the run command writes snapshots. An empty
// Output means standard output.
type SinkConfig struct {
	Output      string `yaml:"output"`
	Compression string `yaml:"compression"` // none, gzip or zstd
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Interval: SampleInterval,
		Overview: OverviewRefreshPeriod,
		Inventory: InventoryConfig{
			Backend: "auto",
			Timeout: 30 * time.Second,
		},
		USB:  USBConfig{Enabled: true},
		Log:  LogConfig{Level: "info", Format: "text"},
		Sink: SinkConfig{Compression: "none"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file at the default path is not an
// error; a missing file named explicitly is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = ConfigFilePath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if IsDebugMode() {
		c.Log.Level = "debug"
	}
	if raw := os.Getenv(EnvInterval); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvInterval, err)
		}
		c.Interval = interval
	}
	if backend := os.Getenv(EnvInventoryBackend); backend != "" {
		c.Inventory.Backend = backend
	}
	return nil
}

// Validate fills zero values with defaults and rejects invalid settings
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		c.Interval = SampleInterval
	}
	if c.Overview <= 0 {
		c.Overview = OverviewRefreshPeriod
	}
	if c.Inventory.Timeout <= 0 {
		c.Inventory.Timeout = 30 * time.Second
	}

	c.Inventory.Backend = strings.ToLower(strings.TrimSpace(c.Inventory.Backend))
	switch c.Inventory.Backend {
	case "":
		c.Inventory.Backend = "auto"
	case "auto", "profiler", "ghw":
	default:
		return fmt.Errorf("unknown inventory backend %q", c.Inventory.Backend)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	switch c.Sink.Compression {
	case "":
		c.Sink.Compression = "none"
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("unknown sink compression %q", c.Sink.Compression)
	}

	return nil
}

// LoadEnvFile loads environment variables from path without overriding
// variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = EnvFilePath
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// IsDebugMode checks if debug mode is enabled
func IsDebugMode() bool {
	debug := os.Getenv(EnvDebug)
	return debug == "true" || debug == "1"
}

// NewLogger builds the process logger from the log settings
func NewLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
