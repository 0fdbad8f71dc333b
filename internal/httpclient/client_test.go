package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingResponse struct {
	Status string `json:"status"`
}

func TestDoJSONSuccessDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(pingResponse{Status: "healthy"})
	}))
	defer srv.Close()

	pub, priv, err := generateTestKey()
	require.NoError(t, err)
	_ = pub

	signer := newTestSigner(priv)
	c := New(srv.URL, signer, "search")
	defer c.Close()

	var out pingResponse
	status, err := c.DoJSON(context.Background(), http.MethodGet, "/health", nil, &out, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", out.Status)
}

func TestDoJSONRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(pingResponse{Status: "healthy"})
	}))
	defer srv.Close()

	_, priv, err := generateTestKey()
	require.NoError(t, err)
	signer := newTestSigner(priv)
	c := New(srv.URL, signer, "search")
	defer c.Close()

	var out pingResponse
	status, err := c.DoJSON(context.Background(), http.MethodGet, "/health", nil, &out, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(3))
}

func TestDoJSONDoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, priv, err := generateTestKey()
	require.NoError(t, err)
	signer := newTestSigner(priv)
	c := New(srv.URL, signer, "search")
	defer c.Close()

	status, err := c.DoJSON(context.Background(), http.MethodGet, "/missing", nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestDoJSONUsesSuppliedTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, priv, err := generateTestKey()
	require.NoError(t, err)
	signer := newTestSigner(priv)
	c := New(srv.URL, signer, "search")
	defer c.Close()

	_, err = c.DoJSON(context.Background(), http.MethodGet, "/slow", nil, nil, 5*time.Millisecond)
	require.Error(t, err)
}
