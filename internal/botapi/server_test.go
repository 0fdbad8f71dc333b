package botapi

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/auth"
	"github.com/ZhiShengYuan/SearchGram/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	lastRecipient int64
	lastCaption   string
	failWith      error
}

func (f *fakeSender) SendFile(ctx context.Context, fileData []byte, fileName, caption string, recipientID int64) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.lastRecipient = recipientID
	f.lastCaption = caption
	return 99, nil
}

func newTestServerAndClient(t *testing.T, sender FileSender) (*Client, func()) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	verifier := auth.NewVerifier(pub, "bot", auth.IssuerUserbot)
	srv := NewServer("127.0.0.1:0", verifier, sender)

	mux := httptest.NewServer(srv.srv.Handler)

	signer := auth.NewSigner(auth.IssuerUserbot, priv, time.Minute)
	h := httpclient.New(mux.URL, signer, "bot")
	return NewClient(h), mux.Close
}

func TestSendFileSuccess(t *testing.T) {
	sender := &fakeSender{}
	client, closeSrv := newTestServerAndClient(t, sender)
	defer closeSrv()

	messageID, err := client.SendFile(context.Background(), []byte("hello"), "note.txt", "a caption", 555)
	require.NoError(t, err)
	assert.Equal(t, 99, messageID)
	assert.Equal(t, int64(555), sender.lastRecipient)
	assert.Equal(t, "a caption", sender.lastCaption)
}

func TestSendFileSurfacesSenderError(t *testing.T) {
	sender := &fakeSender{failWith: errors.New("session closed")}
	client, closeSrv := newTestServerAndClient(t, sender)
	defer closeSrv()

	_, err := client.SendFile(context.Background(), []byte("x"), "a.txt", "", 0)
	require.Error(t, err)
}

func TestSendFileRejectsMissingFileName(t *testing.T) {
	sender := &fakeSender{}
	client, closeSrv := newTestServerAndClient(t, sender)
	defer closeSrv()

	_, err := client.SendFile(context.Background(), []byte("x"), "", "", 0)
	require.Error(t, err)
}

func TestHealthEndpointDirect(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	verifier := auth.NewVerifier(pub, "bot", auth.IssuerUserbot)
	srv := NewServer("127.0.0.1:0", verifier, &fakeSender{})
	mux := httptest.NewServer(srv.srv.Handler)
	defer mux.Close()

	res, err := http.Get(mux.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
