package syncmanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/ZhiShengYuan/SearchGram/internal/indexer"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[int64][][]document.Message
	total    int64
	pageIdxs map[int64]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[int64][][]document.Message{}, pageIdxs: map[int64]int{}}
}

func (f *fakeFetcher) TotalCount(chatID int64) (int64, error) {
	return f.total, nil
}

func (f *fakeFetcher) FetchHistory(chatID int64, offsetID int, limit int) ([]document.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := f.pages[chatID]
	idx := f.pageIdxs[chatID]
	if idx >= len(pages) {
		return nil, false, nil
	}
	f.pageIdxs[chatID] = idx + 1
	return pages[idx], idx+1 < len(pages), nil
}

func newTestManager(t *testing.T, fetcher HistoryFetcher, opts Options) (*Manager, *int32) {
	t.Helper()
	var batches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchclient.BatchUpsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = req
		_ = json.NewEncoder(w).Encode(searchclient.BatchUpsertResponse{IndexedCount: len(req.Messages)})
	}))
	t.Cleanup(srv.Close)

	h := httpclient.New(srv.URL, nil, "search")
	idx := indexer.New(searchclient.New(h), 1000, time.Hour)
	t.Cleanup(func() { _ = idx.Shutdown() })

	if opts.CheckpointFile == "" {
		opts.CheckpointFile = filepath.Join(t.TempDir(), "checkpoint.json")
	}
	opts.DelayBetweenBatches = time.Millisecond

	m, err := New(fetcher, idx, opts)
	require.NoError(t, err)
	return m, &batches
}

func TestAddChatCreatesPendingRecord(t *testing.T) {
	m, _ := newTestManager(t, newFakeFetcher(), Options{})
	p, err := m.AddChat(100, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
}

func TestAddChatRejectsWhileInProgress(t *testing.T) {
	m, _ := newTestManager(t, newFakeFetcher(), Options{})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)

	m.mu.Lock()
	m.chats[100].Status = StatusInProgress
	m.mu.Unlock()

	_, err = m.AddChat(100, 0)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAddChatResetsCompletedToPending(t *testing.T) {
	m, _ := newTestManager(t, newFakeFetcher(), Options{})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)

	m.mu.Lock()
	m.chats[100].Status = StatusCompleted
	m.mu.Unlock()

	p, err := m.AddChat(100, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
}

func TestSyncChatDrainsAllPagesAndCompletes(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages[100] = [][]document.Message{
		{{ChatID: 100, MessageID: 10}, {ChatID: 100, MessageID: 9}},
		{{ChatID: 100, MessageID: 8}},
	}

	m, _ := newTestManager(t, fetcher, Options{BatchSize: 2})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)

	err = m.SyncChat(context.Background(), 100, nil)
	require.NoError(t, err)

	p, ok := m.GetProgress(100)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, int64(3), p.SyncedCount)
	assert.Equal(t, 8, p.LastMessageID)
}

func TestSyncChatMarksFailedOnPermissionDenied(t *testing.T) {
	fetcher := &erroringFetcher{err: &UpstreamError{Kind: KindPermissionDenied, Detail: "channel private"}}
	m, _ := newTestManager(t, fetcher, Options{})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)

	err = m.SyncChat(context.Background(), 100, nil)
	require.Error(t, err)

	p, ok := m.GetProgress(100)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, p.Status)
}

func TestSyncChatBailsAfterMaxRetries(t *testing.T) {
	fetcher := &erroringFetcher{err: &UpstreamError{Kind: KindTransient, Detail: "flaky"}}
	m, _ := newTestManager(t, fetcher, Options{MaxRetries: 2, RetryOnError: true})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)

	err = m.SyncChat(context.Background(), 100, nil)
	require.Error(t, err)

	p, ok := m.GetProgress(100)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, p.Status)
	assert.GreaterOrEqual(t, p.ErrorCount, 2)
}

func TestCheckpointRoundTripsThroughRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")

	fetcher := newFakeFetcher()
	fetcher.pages[100] = [][]document.Message{{{ChatID: 100, MessageID: 5}}}

	m1, _ := newTestManager(t, fetcher, Options{CheckpointFile: path, ResumeOnRestart: true})
	_, err := m1.AddChat(100, 0)
	require.NoError(t, err)
	require.NoError(t, m1.SyncChat(context.Background(), 100, nil))

	m2, _ := newTestManager(t, newFakeFetcher(), Options{CheckpointFile: path, ResumeOnRestart: true})
	p, ok := m2.GetProgress(100)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, p.Status)
}

func TestPauseAndResumeChat(t *testing.T) {
	m, _ := newTestManager(t, newFakeFetcher(), Options{})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)

	require.NoError(t, m.PauseChat(100))
	p, _ := m.GetProgress(100)
	assert.Equal(t, StatusPaused, p.Status)

	require.NoError(t, m.ResumeChat(100))
	p, _ = m.GetProgress(100)
	assert.Equal(t, StatusPending, p.Status)
}

func TestClearCompletedRemovesOnlyCompleted(t *testing.T) {
	m, _ := newTestManager(t, newFakeFetcher(), Options{})
	_, err := m.AddChat(100, 0)
	require.NoError(t, err)
	_, err = m.AddChat(200, 0)
	require.NoError(t, err)

	m.mu.Lock()
	m.chats[100].Status = StatusCompleted
	m.mu.Unlock()

	require.NoError(t, m.ClearCompleted())

	_, ok := m.GetProgress(100)
	assert.False(t, ok)
	_, ok = m.GetProgress(200)
	assert.True(t, ok)
}

type erroringFetcher struct {
	err error
}

func (f *erroringFetcher) TotalCount(chatID int64) (int64, error) { return 0, nil }

func (f *erroringFetcher) FetchHistory(chatID int64, offsetID int, limit int) ([]document.Message, bool, error) {
	return nil, false, f.err
}
