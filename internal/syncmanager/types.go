// Package syncmanager implements the historical Sync Manager (§4.2):
// a single-worker queue that walks chat histories into the search
// engine, persisting a resumable checkpoint after every batch.
package syncmanager

import (
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
)

// Status is a sync progress record's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPaused     Status = "paused"
)

// Progress is the per-chat historical backfill state.
type Progress struct {
	ChatID         int64  `json:"chat_id"`
	TotalCount     int64  `json:"total_count"`
	SyncedCount    int64  `json:"synced_count"`
	LastMessageID  int    `json:"last_message_id"`
	Status         Status `json:"status"`
	ErrorCount     int    `json:"error_count"`
	LastError      string `json:"last_error,omitempty"`
	StartedAt      int64  `json:"started_at,omitempty"`
	CompletedAt    int64  `json:"completed_at,omitempty"`
	LastCheckpoint int64  `json:"last_checkpoint,omitempty"`
	RequestedBy    int64  `json:"requested_by,omitempty"`
}

// Summary is an aggregate read view across all tracked chats.
type Summary struct {
	Total       int   `json:"total"`
	Pending     int   `json:"pending"`
	InProgress  int   `json:"in_progress"`
	Completed   int   `json:"completed"`
	Failed      int   `json:"failed"`
	Paused      int   `json:"paused"`
	CurrentChat int64 `json:"current_chat,omitempty"`
}

// ProgressCallback is invoked after each persisted batch during a sync.
type ProgressCallback func(p Progress)

// HistoryFetcher is the upstream collaborator: given a chat id and a
// resume offset, return the next page of already-converted documents
// older than offsetID (0 means "start from the newest message"), in
// newest-first order, along with whether more pages remain.
type HistoryFetcher interface {
	FetchHistory(chatID int64, offsetID int, limit int) (messages []document.Message, hasMore bool, err error)
	TotalCount(chatID int64) (int64, error)
}

const (
	defaultBatchSize           = 100
	defaultDelayBetweenBatches = 1 * time.Second
	defaultMaxRetries          = 3
)
