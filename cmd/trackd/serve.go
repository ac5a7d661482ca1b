package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trackd-dev/trackd/internal/config"
	"github.com/trackd-dev/trackd/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trackd daemon",
		Long: `Run the trackd daemon.

Configuration is read from trackd.json (searched upward from the current
directory) unless --config names a file. Flags override the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if configPath != "" {
				cfg, err = config.LoadFrom(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			setupLogging(cfg.LogLevel)

			shutdown, read, write, err := cfg.Durations()
			if err != nil {
				slog.Warn("invalid duration in config, using default", "error", err)
			}

			srv := server.New(&server.ServerConfig{
				Addr:            cfg.Addr,
				ReadTimeout:     read,
				WriteTimeout:    write,
				ShutdownTimeout: shutdown,
				MaxMessageSize:  cfg.MaxMessageSize,
				CheckOrigin:     originChecker(cfg.AllowedOrigins),
				EnableMetrics:   cfg.MetricsEnabled(),
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to trackd.json")

	return cmd
}

// setupLogging installs a slog text handler at the configured level.
func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// originChecker builds the websocket origin check. An empty allowlist
// keeps the upgrader's same-origin default; "*" accepts anything.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

func apiURL(addr, name string) string {
	return fmt.Sprintf("http://%s/api/trackers/%s", addr, name)
}
