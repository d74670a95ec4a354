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

	"github.com/edgeline/edgeline/internal/circuitbreaker"
	"github.com/edgeline/edgeline/internal/controller"
	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/internal/memory"
	"github.com/edgeline/edgeline/pkg/healthprobe"
)

// Server provides HTTP endpoints for metrics, health checks, and the
// agent ops API.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Controller    *controller.Controller
	Ledger        *ledger.Ledger
	Breaker       *circuitbreaker.BankrollCircuitBreaker
	Memory        memory.Store
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
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

	// Ops API endpoints (if components provided)
	if cfg.Controller != nil && cfg.Ledger != nil {
		opsHandler := NewOpsHandler(cfg.Controller, cfg.Ledger, cfg.Breaker, cfg.Memory, cfg.Logger)
		r.Get("/api/state", opsHandler.HandleState)
		r.Get("/api/ledger", opsHandler.HandleLedger)
		r.Get("/api/decisions", opsHandler.HandleDecisions)
		r.Get("/api/breaker", opsHandler.HandleBreaker)
		r.Post("/api/breaker/clear", opsHandler.HandleBreakerClear)
		r.Get("/api/memory", opsHandler.HandleMemorySearch)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
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
