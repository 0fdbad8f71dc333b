package searchclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
)

// Client is a thin RPC wrapper: one method per search engine endpoint,
// each building a typed request and decoding a typed response,
// following the teacher's tg.Client shape of hiding the wire format
// behind per-call methods.
type Client struct {
	http *httpclient.Client
}

// New wraps an already-configured httpclient.Client.
func New(h *httpclient.Client) *Client {
	return &Client{http: h}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	_, err := c.http.DoJSON(ctx, http.MethodGet, "/health", nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: health: %w", err)
	}
	return &out, nil
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var out PingResponse
	_, err := c.http.DoJSON(ctx, http.MethodGet, "/api/v1/ping", nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: ping: %w", err)
	}
	return &out, nil
}

func (c *Client) Upsert(ctx context.Context, msg document.Message) (*UpsertResponse, error) {
	var out UpsertResponse
	_, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/upsert", msg, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: upsert: %w", err)
	}
	return &out, nil
}

func (c *Client) UpsertBatch(ctx context.Context, req BatchUpsertRequest) (*BatchUpsertResponse, error) {
	var out BatchUpsertResponse
	_, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/upsert/batch", req, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: upsert batch: %w", err)
	}
	return &out, nil
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	_, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/search", req, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: search: %w", err)
	}
	return &out, nil
}

func (c *Client) Clear(ctx context.Context) (*ClearResponse, error) {
	var out ClearResponse
	_, err := c.http.DoJSON(ctx, http.MethodDelete, "/api/v1/clear", nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: clear: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteByChat(ctx context.Context, chatID int64) (*DeletedCountResponse, error) {
	var out DeletedCountResponse
	path := fmt.Sprintf("/api/v1/messages?chat_id=%d", chatID)
	_, err := c.http.DoJSON(ctx, http.MethodDelete, path, nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: delete by chat: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteByUser(ctx context.Context, userID int64) (*DeletedCountResponse, error) {
	var out DeletedCountResponse
	path := fmt.Sprintf("/api/v1/users/%d", userID)
	_, err := c.http.DoJSON(ctx, http.MethodDelete, path, nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: delete by user: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteCommands(ctx context.Context) (*DeletedCountResponse, error) {
	var out DeletedCountResponse
	_, err := c.http.DoJSON(ctx, http.MethodDelete, "/api/v1/commands", nil, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: delete commands: %w", err)
	}
	return &out, nil
}

func (c *Client) SoftDelete(ctx context.Context, req SoftDeleteRequest) (*SoftDeleteResponse, error) {
	var out SoftDeleteResponse
	_, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/messages/soft-delete", req, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: soft delete: %w", err)
	}
	return &out, nil
}

func (c *Client) Dedup(ctx context.Context) (*DedupResponse, error) {
	var out DedupResponse
	_, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/dedup", nil, &out, httpclient.LongTimeout)
	if err != nil {
		return nil, fmt.Errorf("searchclient: dedup: %w", err)
	}
	return &out, nil
}

func (c *Client) UserStats(ctx context.Context, req UserStatsRequest) (*UserStatsResponse, error) {
	var out UserStatsResponse
	_, err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/stats/user", req, &out, 0)
	if err != nil {
		return nil, fmt.Errorf("searchclient: user stats: %w", err)
	}
	return &out, nil
}
