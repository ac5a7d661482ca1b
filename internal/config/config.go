// Package config loads the trackd.json daemon configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "trackd.json"

	// DefaultAddr is the default daemon listen address.
	DefaultAddr = ":7473"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultReadTimeout is the websocket read deadline per message.
	DefaultReadTimeout = 60 * time.Second

	// DefaultWriteTimeout is the websocket write deadline per message.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxMessageSize limits incoming websocket messages in bytes.
	DefaultMaxMessageSize = 1 << 20
)

// Config represents the complete trackd.json configuration. Durations are
// given as strings in Go duration syntax ("10s", "1m30s").
type Config struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`

	// ReadTimeout is the websocket read deadline per message.
	ReadTimeout string `json:"read_timeout,omitempty"`

	// WriteTimeout is the websocket write deadline per message.
	WriteTimeout string `json:"write_timeout,omitempty"`

	// MaxMessageSize limits incoming websocket messages in bytes.
	MaxMessageSize int64 `json:"max_message_size,omitempty"`

	// AllowedOrigins lists origins accepted for websocket upgrades. Empty
	// means same-origin only.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// Metrics toggles the /metrics endpoint and request metrics.
	Metrics *bool `json:"metrics,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// Default returns a config populated with defaults.
func Default() *Config {
	metrics := true
	return &Config{
		Addr:            DefaultAddr,
		ShutdownTimeout: DefaultShutdownTimeout.String(),
		ReadTimeout:     DefaultReadTimeout.String(),
		WriteTimeout:    DefaultWriteTimeout.String(),
		MaxMessageSize:  DefaultMaxMessageSize,
		Metrics:         &metrics,
		LogLevel:        "info",
	}
}

// Load reads trackd.json, searching from the current directory upward.
// A missing file is not an error: defaults are returned.
func Load() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: getwd: %w", err)
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// LoadFrom reads the config from an explicit path and fills unset fields
// with defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.configPath = path
	cfg.fillDefaults()
	return cfg, nil
}

// Path returns where the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// MetricsEnabled reports whether metrics are enabled (default true).
func (c *Config) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

// Durations returns the parsed timeout fields. Invalid values fall back
// to defaults and report an error naming the offending field.
func (c *Config) Durations() (shutdown, read, write time.Duration, err error) {
	shutdown, err = parseDuration("shutdown_timeout", c.ShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return
	}
	read, err = parseDuration("read_timeout", c.ReadTimeout, DefaultReadTimeout)
	if err != nil {
		return
	}
	write, err = parseDuration("write_timeout", c.WriteTimeout, DefaultWriteTimeout)
	return
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("config: invalid %s %q: %w", field, value, err)
	}
	return d, nil
}

func (c *Config) fillDefaults() {
	defaults := Default()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}
