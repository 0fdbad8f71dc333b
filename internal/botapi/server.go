// Package botapi is the Bot process's HTTP server (§4.3, bot_port,
// default 8081), which accepts file-relay requests from the ingestor,
// plus the ingestor-side client for it. Shares the
// router+middleware+JSON-envelope shape of internal/syncapi, itself
// grounded on the teacher's internal/web package.
package botapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZhiShengYuan/SearchGram/internal/auth"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// FileSender delivers a relayed file through the bot's own session.
type FileSender interface {
	SendFile(ctx context.Context, fileData []byte, fileName, caption string, recipientID int64) (messageID int, err error)
}

// Server is the Bot's file-relay HTTP API.
type Server struct {
	srv    *http.Server
	sender FileSender
}

// NewServer builds a Server listening on addr, verifying every
// protected request with verifier (allow-list: userbot).
func NewServer(addr string, verifier *auth.Verifier, sender FileSender) *Server {
	r := chi.NewRouter()
	s := &Server{sender: sender}

	r.Get("/health", s.handleHealth)
	r.Group(func(gr chi.Router) {
		gr.Use(auth.Middleware(verifier))
		gr.Post("/api/v1/send_file", s.handleSendFile)
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

func (s *Server) Start() error {
	logging.Infof("botapi: listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("botapi: serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Errorf("botapi: write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: http.StatusText(status), Message: message})
}
