package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerConfig holds the daemon's runtime configuration.
type ServerConfig struct {
	// Addr is the listen address (default ":7473").
	Addr string

	// ReadTimeout is the websocket read deadline per message.
	ReadTimeout time.Duration

	// WriteTimeout is the websocket write deadline per message.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds HTTP header reads.
	ReadHeaderTimeout time.Duration

	// MaxMessageSize limits incoming websocket messages in bytes.
	MaxMessageSize int64

	// CheckOrigin validates websocket upgrade origins. Defaults to
	// same-origin only.
	CheckOrigin func(r *http.Request) bool

	// EnableMetrics mounts /metrics and installs the Prometheus
	// middleware.
	EnableMetrics bool

	// MetricsRegistry receives the daemon metrics. Defaults to the
	// Prometheus default registry.
	MetricsRegistry *prometheus.Registry
}

// DefaultServerConfig returns a config with production defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:              ":7473",
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxMessageSize:    1 << 20,
		EnableMetrics:     true,
	}
}

// withDefaults fills unset fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	defaults := DefaultServerConfig()
	if c == nil {
		return defaults
	}
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	return c
}
