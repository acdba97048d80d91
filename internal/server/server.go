package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"cookbook/internal/handlers"
	applog "cookbook/internal/log"
	"cookbook/internal/metrics"
	"cookbook/internal/store"
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr     string
	Database *gorm.DB
	// Registry receives the store metrics and backs /metrics. A fresh
	// registry with Go and process collectors is used when nil.
	Registry *prometheus.Registry
}

// Server wraps an http.Server and exposes helpers for bootstrapping a
// production-ready web service.
type Server struct {
	config     Config
	httpServer *http.Server
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	applog.Debug(context.Background(), "initializing server", "addr", cfg.Addr, "database", cfg.Database != nil)

	registry := cfg.Registry
	if registry == nil {
		applog.Debug(context.Background(), "metrics registry not provided, using default")
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register store metrics: %w", err)
	}

	var stores *store.Stores
	if cfg.Database != nil {
		stores = store.New(cfg.Database, recorder)
	}
	handlers.Configure(stores, cfg.Database)

	applog.Debug(context.Background(), "handler dependencies configured")

	handler := newRouter(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	applog.Debug(context.Background(), "http handler chain prepared")

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
