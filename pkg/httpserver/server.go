// Package httpserver exposes the service's operational surface:
// health, metrics, scan control and runtime configuration.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/scanner"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/healthprobe"
)

// Pipeline is the slice of the scanner the server exposes.
type Pipeline interface {
	RunFullScan(ctx context.Context, premium bool) (*scanner.Summary, error)
	Progress() *scanner.Tracker
}

// Settings resolves and persists runtime settings.
type Settings interface {
	Resolve(ctx context.Context) config.Settings
	Save(ctx context.Context, updates map[string]string) error
}

// Rescheduler applies a new scan schedule at runtime.
type Rescheduler interface {
	Reschedule(scanTimes []int) error
}

// Notifier sends the test notification.
type Notifier interface {
	SendTest(ctx context.Context)
}

// Server provides HTTP endpoints for metrics, health checks and
// pipeline control.
type Server struct {
	server   *http.Server
	logger   *zap.Logger
	pipeline Pipeline
	settings Settings
	schedule Rescheduler
	notify   Notifier
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Pipeline      Pipeline
	Settings      Settings
	Rescheduler   Rescheduler
	Notifier      Notifier
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		logger:   cfg.Logger,
		pipeline: cfg.Pipeline,
		settings: cfg.Settings,
		schedule: cfg.Rescheduler,
		notify:   cfg.Notifier,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	if cfg.Pipeline != nil {
		r.Post("/scan", s.handleTriggerScan)
		r.Get("/scan/status", s.handleScanStatus)
	}
	if cfg.Settings != nil {
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
	}
	if cfg.Notifier != nil {
		r.Post("/notifications/test", s.handleTestNotification)
	}

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
