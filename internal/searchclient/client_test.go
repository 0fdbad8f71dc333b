package searchclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	h := httpclient.New(srv.URL, nil, "search")
	return New(h), srv.Close
}

func TestSearchDecodesHits(t *testing.T) {
	c, close := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Keyword)

		_ = json.NewEncoder(w).Encode(SearchResponse{
			Hits:        []document.Message{{ChatID: 1, MessageID: 2, Text: "hello world"}},
			TotalHits:   1,
			TotalPages:  1,
			Page:        1,
			HitsPerPage: 10,
		})
	}))
	defer close()

	resp, err := c.Search(context.Background(), SearchRequest{Keyword: "hello", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalHits)
	assert.Equal(t, "hello world", resp.Hits[0].Text)
}

func TestUpsertBatchReportsFailures(t *testing.T) {
	c, close := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/upsert/batch", r.URL.Path)
		_ = json.NewEncoder(w).Encode(BatchUpsertResponse{IndexedCount: 2, FailedCount: 1, Errors: []string{"bad doc"}})
	}))
	defer close()

	resp, err := c.UpsertBatch(context.Background(), BatchUpsertRequest{
		Messages: []document.Message{{ChatID: 1, MessageID: 1}, {ChatID: 1, MessageID: 2}, {ChatID: 1, MessageID: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.IndexedCount)
	assert.Equal(t, 1, resp.FailedCount)
}

func TestDeleteByChatBuildsQueryString(t *testing.T) {
	c, close := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/messages", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("chat_id"))
		_ = json.NewEncoder(w).Encode(DeletedCountResponse{DeletedCount: 7})
	}))
	defer close()

	resp, err := c.DeleteByChat(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.DeletedCount)
}
