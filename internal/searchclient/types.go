// Package searchclient is the typed client for the external search
// engine's REST contract (§6). The engine itself is out of scope; this
// package only describes the wire shapes and the calls that drive them.
package searchclient

import "github.com/ZhiShengYuan/SearchGram/internal/document"

// PingResponse is GET /api/v1/ping.
type PingResponse struct {
	Status         string `json:"status"`
	Engine         string `json:"engine"`
	TotalDocuments int64  `json:"total_documents"`
}

// HealthResponse is GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UpsertResponse is POST /api/v1/upsert.
type UpsertResponse struct {
	Success bool `json:"success"`
}

// BatchUpsertRequest is POST /api/v1/upsert/batch.
type BatchUpsertRequest struct {
	Messages []document.Message `json:"messages"`
}

// BatchUpsertResponse is POST /api/v1/upsert/batch.
type BatchUpsertResponse struct {
	IndexedCount int      `json:"indexed_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors"`
}

// SearchRequest is POST /api/v1/search.
type SearchRequest struct {
	Keyword        string  `json:"keyword"`
	Page           int     `json:"page"`
	PageSize       int     `json:"page_size"`
	ExactMatch     bool    `json:"exact_match"`
	ChatType       string  `json:"chat_type,omitempty"`
	Username       string  `json:"username,omitempty"`
	ChatID         int64   `json:"chat_id,omitempty"`
	BlockedUsers   []int64 `json:"blocked_users,omitempty"`
	IncludeDeleted bool    `json:"include_deleted"`
}

// SearchResponse is POST /api/v1/search.
type SearchResponse struct {
	Hits        []document.Message `json:"hits"`
	TotalHits   int                `json:"total_hits"`
	TotalPages  int                `json:"total_pages"`
	Page        int                `json:"page"`
	HitsPerPage int                `json:"hits_per_page"`
	TookMs      int64              `json:"took_ms"`
}

// ClearResponse is DELETE /api/v1/clear.
type ClearResponse struct {
	Success bool `json:"success"`
}

// DeletedCountResponse covers DELETE /api/v1/messages, /users/<id>,
// and /commands, which all share the same response shape.
type DeletedCountResponse struct {
	DeletedCount int `json:"deleted_count"`
}

// SoftDeleteRequest is POST /api/v1/messages/soft-delete.
type SoftDeleteRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// SoftDeleteResponse is POST /api/v1/messages/soft-delete.
type SoftDeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DedupResponse is POST /api/v1/dedup.
type DedupResponse struct {
	DuplicatesFound   int `json:"duplicates_found"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// UserStatsRequest is POST /api/v1/stats/user.
type UserStatsRequest struct {
	GroupID         int64 `json:"group_id"`
	UserID          int64 `json:"user_id"`
	FromTimestamp   int64 `json:"from_timestamp"`
	ToTimestamp     int64 `json:"to_timestamp"`
	IncludeMentions bool  `json:"include_mentions"`
	IncludeDeleted  bool  `json:"include_deleted"`
}

// UserStatsResponse is POST /api/v1/stats/user.
type UserStatsResponse struct {
	UserMessageCount  int     `json:"user_message_count"`
	GroupMessageTotal int     `json:"group_message_total"`
	UserRatio         float64 `json:"user_ratio"`
	MentionsOut       int     `json:"mentions_out,omitempty"`
	MentionsIn        int     `json:"mentions_in,omitempty"`
}
