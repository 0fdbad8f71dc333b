package syncapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/syncmanager"
)

// syncRequest is POST /api/v1/sync.
type syncRequest struct {
	ChatID      int64 `json:"chat_id"`
	RequestedBy int64 `json:"requested_by,omitempty"`
}

// syncResponse is the success shape of POST /api/v1/sync.
type syncResponse struct {
	Success bool   `json:"success"`
	ChatID  int64  `json:"chat_id"`
	Message string `json:"message"`
}

// syncConflictResponse is the 409 shape of POST /api/v1/sync.
type syncConflictResponse struct {
	Success bool               `json:"success"`
	ChatID  int64              `json:"chat_id"`
	Message string             `json:"message"`
	Status  syncmanager.Status `json:"status"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	_, err := s.mgr.AddChat(req.ChatID, req.RequestedBy)
	if err != nil {
		if errors.Is(err, syncmanager.ErrInvalidState) {
			p, _ := s.mgr.GetProgress(req.ChatID)
			status := syncmanager.StatusInProgress
			if p != nil {
				status = p.Status
			}
			writeJSON(w, http.StatusConflict, syncConflictResponse{
				Success: false,
				ChatID:  req.ChatID,
				Message: "chat is already queued or in progress",
				Status:  status,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{Success: true, ChatID: req.ChatID, Message: "queued"})
}

// statusResponse is GET /api/v1/sync/status.
type statusResponse struct {
	Timestamp int64                 `json:"timestamp"`
	Chats     []syncmanager.Progress `json:"chats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	chatIDParam := r.URL.Query().Get("chat_id")
	if chatIDParam == "" {
		writeJSON(w, http.StatusOK, statusResponse{Timestamp: time.Now().Unix(), Chats: s.mgr.GetAllProgress()})
		return
	}

	chatID, err := strconv.ParseInt(chatIDParam, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id must be an integer")
		return
	}

	p, ok := s.mgr.GetProgress(chatID)
	if !ok {
		writeError(w, http.StatusNotFound, "chat not tracked")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Timestamp: time.Now().Unix(), Chats: []syncmanager.Progress{*p}})
}

type chatIDRequest struct {
	ChatID int64 `json:"chat_id"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req chatIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if err := s.mgr.PauseChat(req.ChatID); err != nil {
		if errors.Is(err, syncmanager.ErrUnknownChat) {
			writeError(w, http.StatusNotFound, "chat not tracked")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Success: true, ChatID: req.ChatID, Message: "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req chatIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if err := s.mgr.ResumeChat(req.ChatID); err != nil {
		if errors.Is(err, syncmanager.ErrUnknownChat) {
			writeError(w, http.StatusNotFound, "chat not tracked")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Success: true, ChatID: req.ChatID, Message: "resumed"})
}
