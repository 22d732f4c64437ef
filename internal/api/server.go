package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cosmoexplorer/backend/internal/config"
)

// Server represents the API server
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server around the given handlers.
func NewServer(cfg *config.Config, h *Handlers) *Server {
	return &Server{
		cfg:     cfg.Server,
		handler: setupRoutes(h, cfg.Site.AllowedOrigins),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
