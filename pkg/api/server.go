// Package api exposes the natural-language query, cart and order services over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the triplestore answers.
type Pinger interface {
	Health(ctx context.Context) error
}

// Server provides HTTP API endpoints
type Server struct {
	port    string
	mux     *http.ServeMux
	server  *http.Server
	store   Pinger
	metrics http.Handler
	logger  *slog.Logger
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(port string, store Pinger, nlq *NLQHandler, carts *CartHandler, orders *OrderHandler, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	s := &Server{
		port:    port,
		mux:     http.NewServeMux(),
		store:   store,
		metrics: metrics,
		logger:  logger,
	}

	s.registerRoutes(nlq, carts, orders)
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes(nlq *NLQHandler, carts *CartHandler, orders *OrderHandler) {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.Handle("/metrics", s.metrics)

	if nlq != nil {
		s.mux.HandleFunc("/api/nlq", nlq.HandleAsk)
		s.mux.HandleFunc("/api/nlq/", nlq.HandleNLQ)
	}
	if carts != nil {
		s.mux.HandleFunc("/api/cart/", carts.HandleCart)
	}
	if orders != nil {
		s.mux.HandleFunc("/api/orders", orders.HandleOrders)
		s.mux.HandleFunc("/api/orders/", orders.HandleOrder)
	}
}

// RegisterHandler registers an additional route
func (s *Server) RegisterHandler(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// Handler returns the root handler with request logging
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Health(r.Context()); err != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
