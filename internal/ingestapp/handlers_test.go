package ingestapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhiShengYuan/SearchGram/internal/concurrency"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/ZhiShengYuan/SearchGram/internal/indexer"
	"github.com/ZhiShengYuan/SearchGram/internal/ingestapp/peercache"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
)

func newTestHandlers(t *testing.T, onBatch func(req searchclient.BatchUpsertRequest)) (*Handlers, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/upsert/batch":
			var req searchclient.BatchUpsertRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if onBatch != nil {
				onBatch(req)
			}
			_ = json.NewEncoder(w).Encode(searchclient.BatchUpsertResponse{IndexedCount: len(req.Messages)})
		case "/api/v1/messages/soft-delete":
			_ = json.NewEncoder(w).Encode(searchclient.SoftDeleteResponse{Success: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	hc := httpclient.New(srv.URL, nil, "search")
	sc := searchclient.New(hc)
	idx := indexer.New(sc, 1, time.Hour)

	peers, err := peercache.Open(filepath.Join(t.TempDir(), "peers.bbolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = peers.Close() })

	deb := concurrency.NewDebouncer(10)

	h := NewHandlers(idx, peers, sc, deb)
	return h, func() { _ = idx.Shutdown() }
}

func userEntities(id int64, username string) tg.Entities {
	return tg.Entities{Users: map[int64]*tg.User{id: {ID: id, Username: username}}}
}

func TestOnNewMessageIndexesDocument(t *testing.T) {
	var got searchclient.BatchUpsertRequest
	h, cleanup := newTestHandlers(t, func(req searchclient.BatchUpsertRequest) { got = req })
	defer cleanup()

	entities := userEntities(9, "bob")
	msg := &tg.Message{ID: 1, Message: "hello", PeerID: &tg.PeerUser{UserID: 9}, FromID: &tg.PeerUser{UserID: 9}}

	err := h.OnNewMessage(context.Background(), entities, &tg.UpdateNewMessage{Message: msg})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Text)
}

func TestOnEditMessageDebouncesBeforeIndexing(t *testing.T) {
	count := 0
	h, cleanup := newTestHandlers(t, func(req searchclient.BatchUpsertRequest) { count += len(req.Messages) })
	defer cleanup()
	h.debouncer.Start(context.Background())
	defer h.debouncer.Stop()

	entities := userEntities(9, "bob")
	msg := &tg.Message{ID: 1, Message: "v1", PeerID: &tg.PeerUser{UserID: 9}}

	for i := 0; i < 3; i++ {
		err := h.OnEditMessage(context.Background(), entities, &tg.UpdateEditMessage{Message: msg})
		require.NoError(t, err)
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, count)
}

func TestOnDeleteChannelMessagesSoftDeletesEachID(t *testing.T) {
	h, cleanup := newTestHandlers(t, nil)
	defer cleanup()

	err := h.OnDeleteChannelMessages(context.Background(), tg.Entities{}, &tg.UpdateDeleteChannelMessages{
		ChannelID: 42,
		Messages:  []int{1, 2, 3},
	})
	require.NoError(t, err)
}

func TestOnDeleteMessagesWithoutChatIDDoesNotPanic(t *testing.T) {
	h, cleanup := newTestHandlers(t, nil)
	defer cleanup()

	err := h.OnDeleteMessages(context.Background(), tg.Entities{}, &tg.UpdateDeleteMessages{Messages: []int{1}})
	require.NoError(t, err)
}
