package indexer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(t *testing.T, batchSize int, interval time.Duration) (*Indexer, *int32, func()) {
	t.Helper()
	var batchesSeen int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchclient.BatchUpsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		atomic.AddInt32(&batchesSeen, 1)
		_ = json.NewEncoder(w).Encode(searchclient.BatchUpsertResponse{IndexedCount: len(req.Messages)})
	}))

	h := httpclient.New(srv.URL, nil, "search")
	c := searchclient.New(h)
	idx := New(c, batchSize, interval)
	return idx, &batchesSeen, srv.Close
}

func TestUpsertTriggersFlushAtBatchSize(t *testing.T) {
	idx, batchesSeen, closeSrv := newTestIndexer(t, 3, time.Hour)
	defer closeSrv()
	defer idx.Shutdown()

	for i := 0; i < 3; i++ {
		idx.Upsert(document.Message{ChatID: 1, MessageID: i})
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(batchesSeen) == 1
	}, time.Second, 10*time.Millisecond)

	stats := idx.Stats()
	assert.Equal(t, int64(3), stats.Flushed)
	assert.Equal(t, 0, stats.BufferSize)
}

func TestUpsertDoesNotFlushBelowBatchSize(t *testing.T) {
	idx, batchesSeen, closeSrv := newTestIndexer(t, 10, time.Hour)
	defer closeSrv()
	defer idx.Shutdown()

	idx.Upsert(document.Message{ChatID: 1, MessageID: 1})
	idx.Upsert(document.Message{ChatID: 1, MessageID: 2})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(batchesSeen))

	stats := idx.Stats()
	assert.Equal(t, 2, stats.BufferSize)
}

func TestFlushIntervalDrainsNonEmptyBuffer(t *testing.T) {
	idx, batchesSeen, closeSrv := newTestIndexer(t, 100, 20*time.Millisecond)
	defer closeSrv()
	defer idx.Shutdown()

	idx.Upsert(document.Message{ChatID: 1, MessageID: 1})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(batchesSeen) >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownFlushesRemainingBuffer(t *testing.T) {
	idx, batchesSeen, closeSrv := newTestIndexer(t, 100, time.Hour)
	defer closeSrv()

	idx.Upsert(document.Message{ChatID: 1, MessageID: 1})
	idx.Upsert(document.Message{ChatID: 1, MessageID: 2})

	require.NoError(t, idx.Shutdown())
	assert.Equal(t, int32(1), atomic.LoadInt32(batchesSeen))

	stats := idx.Stats()
	assert.Equal(t, int64(2), stats.Flushed)
}
