package syncapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/auth"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/syncmanager"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server is the Ingestor's sync control HTTP API.
type Server struct {
	srv *http.Server
	mgr *syncmanager.Manager
}

// NewServer builds a Server listening on addr, verifying every
// request with verifier (allow-list: bot).
func NewServer(addr string, verifier *auth.Verifier, mgr *syncmanager.Manager) *Server {
	r := chi.NewRouter()
	s := &Server{mgr: mgr}

	r.Get("/health", s.handleHealth)

	r.Group(func(gr chi.Router) {
		gr.Use(auth.Middleware(verifier))
		gr.Post("/api/v1/sync", s.handleSync)
		gr.Get("/api/v1/sync/status", s.handleStatus)
		gr.Post("/api/v1/sync/pause", s.handlePause)
		gr.Post("/api/v1/sync/resume", s.handleResume)
	})

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Start runs the HTTP server; it blocks until Shutdown is called.
func (s *Server) Start() error {
	logging.Infof("syncapi: listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("syncapi: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
