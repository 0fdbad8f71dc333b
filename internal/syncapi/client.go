package syncapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/ZhiShengYuan/SearchGram/internal/syncmanager"
)

// Client is the Bot's handle on the Ingestor's sync control API.
type Client struct {
	http *httpclient.Client
}

// NewClient wraps an already-configured httpclient.Client.
func NewClient(h *httpclient.Client) *Client {
	return &Client{http: h}
}

// RequestSync asks the ingestor to enroll chatID for historical sync.
// A 409 from the server is surfaced as *ConflictError, not a plain error.
func (c *Client) RequestSync(ctx context.Context, chatID, requestedBy int64) (*syncResponse, error) {
	var out syncConflictResponse
	status, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/sync", syncRequest{ChatID: chatID, RequestedBy: requestedBy}, &out, 0)
	if status == http.StatusConflict {
		return nil, &ConflictError{ChatID: chatID, Status: out.Status, Message: out.Message}
	}
	if err != nil {
		return nil, fmt.Errorf("syncapi: request sync: %w", err)
	}
	return &syncResponse{Success: out.Success, ChatID: out.ChatID, Message: out.Message}, nil
}

// Status fetches progress for one chat, or every tracked chat when
// chatID is 0.
func (c *Client) Status(ctx context.Context, chatID int64) (*statusResponse, error) {
	path := "/api/v1/sync/status"
	if chatID != 0 {
		path = fmt.Sprintf("%s?chat_id=%d", path, chatID)
	}
	var out statusResponse
	_, err := c.http.DoJSON(ctx, http.MethodGet, path, nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("syncapi: status: %w", err)
	}
	return &out, nil
}

func (c *Client) Pause(ctx context.Context, chatID int64) error {
	var out errorBody
	status, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/sync/pause", chatIDRequest{ChatID: chatID}, &out, 0)
	if err != nil {
		return fmt.Errorf("syncapi: pause: %w", err)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("syncapi: pause chat %d: %s (%d)", chatID, out.Message, status)
	}
	return nil
}

func (c *Client) Resume(ctx context.Context, chatID int64) error {
	var out errorBody
	status, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/sync/resume", chatIDRequest{ChatID: chatID}, &out, 0)
	if err != nil {
		return fmt.Errorf("syncapi: resume: %w", err)
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("syncapi: resume chat %d: %s (%d)", chatID, out.Message, status)
	}
	return nil
}

// ConflictError is returned by RequestSync when the ingestor reports
// the chat is already queued or in progress (HTTP 409).
type ConflictError struct {
	ChatID  int64
	Status  syncmanager.Status
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("syncapi: chat %d already queued (status=%s): %s", e.ChatID, e.Status, e.Message)
}
