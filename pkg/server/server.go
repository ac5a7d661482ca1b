// Package server implements the trackd broadcast daemon: a registry of
// named trackers exposed over an HTTP API and a websocket subscription
// endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trackd-dev/trackd/pkg/middleware"
)

// Server is the trackd HTTP/websocket daemon.
type Server struct {
	registry *Registry
	config   *ServerConfig
	upgrader websocket.Upgrader
	metrics  *Metrics
	logger   *slog.Logger

	httpServer *http.Server
}

// New creates a Server with the given configuration. Nil or partially
// filled configs are completed with defaults.
func New(config *ServerConfig) *Server {
	config = config.withDefaults()

	logger := slog.Default().With("component", "server")

	s := &Server{
		registry: NewRegistry(),
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}

	if config.EnableMetrics {
		var reg prometheus.Registerer = prometheus.DefaultRegisterer
		if config.MetricsRegistry != nil {
			reg = config.MetricsRegistry
		}
		s.metrics = NewMetrics(reg)
		s.registry.OnCreate(func(string) { s.metrics.recordTrackerCreated() })
	}

	return s
}

// Registry returns the server's tracker registry. Embedding applications
// can set values directly; websocket subscribers observe them the same
// way as API writes.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Handler returns the daemon's full HTTP handler for mounting in external
// routers or tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// The websocket upgrade hijacks the connection and needs the raw
	// ResponseWriter, so /ws stays outside the middleware chain.
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)

	if s.config.EnableMetrics {
		if s.config.MetricsRegistry != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.MetricsRegistry, promhttp.HandlerOpts{}))
		} else {
			r.Method(http.MethodGet, "/metrics", promhttp.Handler())
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.OpenTelemetry())
		if s.config.EnableMetrics {
			if s.config.MetricsRegistry != nil {
				r.Use(middleware.Prometheus(middleware.WithRegistry(s.config.MetricsRegistry)))
			} else {
				r.Use(middleware.Prometheus())
			}
		}

		r.Route("/api/trackers", func(r chi.Router) {
			r.Get("/", s.handleListTrackers)
			r.Get("/{name}", s.handleGetTracker)
			r.Put("/{name}", s.handlePutTracker)
		})
	})

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// trackerState is the JSON shape of a tracker in API responses.
type trackerState struct {
	Name        string          `json:"name"`
	Initialized bool            `json:"initialized"`
	Value       json.RawMessage `json:"value,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListTrackers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"trackers": s.registry.Names()})
}

func (s *Server) handleGetTracker(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	t := s.registry.Get(name)
	if t == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tracker"})
		return
	}

	state := trackerState{Name: name, Initialized: t.Initialized()}
	if state.Initialized {
		state.Value = t.ReadCached()
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePutTracker(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var value json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxMessageSize)).Decode(&value); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	silent := r.URL.Query().Get("silent") == "true"

	t := s.registry.GetOrCreate(name)
	if silent {
		t.SetSilent(value)
	} else {
		t.SetValue(value)
	}
	s.metrics.recordSet(silent)

	s.logger.Debug("value assigned", "tracker", name, "silent", silent)
	writeJSON(w, http.StatusOK, trackerState{Name: name, Initialized: t.Initialized(), Value: t.ReadCached()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
