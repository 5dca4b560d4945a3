// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics serves a Prometheus registry over HTTP for the bot
// binaries: /metrics in OpenMetrics format and /health for liveness
// probes.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address is the listen address (e.g., "127.0.0.1:9100").
	Address string

	// Registry is served on /metrics. If nil, a new registry is created
	// with the Go runtime and process collectors.
	Registry *prometheus.Registry

	// Logger receives lifecycle logs. If nil, slog.Default().
	Logger *slog.Logger
}

// Server exposes a Prometheus registry over HTTP.
type Server struct {
	address  string
	server   *http.Server
	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewRegistry returns a registry holding the Go runtime and process
// collectors, ready for the bot's own metrics.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewServer creates a metrics server. It does not listen until Serve.
func NewServer(config ServerConfig) *Server {
	registry := config.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := &Server{
		address:  config.Address,
		registry: registry,
		logger:   logger,
	}
	server.server = &http.Server{
		Addr:              config.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return server
}

// Registry returns the served registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP handler serving /metrics and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /health", healthHandler)
	return mux
}

// Serve listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully. A listen failure is returned
// immediately.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("metrics: listening on %s: %w", s.address, err)
	}
	return s.serveListener(ctx, listener)
}

func (s *Server) serveListener(ctx context.Context, listener net.Listener) error {
	s.logger.Info("metrics server listening", "address", listener.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serving: %w", err)
	case <-ctx.Done():
	}

	shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	s.logger.Info("metrics server stopped")
	return nil
}

func healthHandler(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	fmt.Fprint(writer, `{"status":"healthy","service":"matrixbot"}`)
}
