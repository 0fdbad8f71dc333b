package auth

import (
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	pub, priv := generateKeypair(t)
	signer := NewSigner(IssuerBot, priv, 5*time.Minute)
	verifier := NewVerifier(pub, "search", IssuerBot, IssuerUserbot)

	token, err := signer.Mint("search")
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, string(IssuerBot), claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	pub, priv := generateKeypair(t)
	signer := NewSigner(IssuerUserbot, priv, -1*time.Second)
	verifier := NewVerifier(pub, "search", IssuerUserbot)

	token, err := signer.Mint("search")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	pub, priv := generateKeypair(t)
	signer := NewSigner(IssuerBot, priv, time.Minute)
	verifier := NewVerifier(pub, "userbot", IssuerBot)

	token, err := signer.Mint("search")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrWrongAudience)
}

func TestVerifyRejectsDisallowedIssuer(t *testing.T) {
	pub, priv := generateKeypair(t)
	signer := NewSigner(IssuerSearch, priv, time.Minute)
	verifier := NewVerifier(pub, "bot", IssuerBot, IssuerUserbot)

	token, err := signer.Mint("bot")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrIssuerDenied)
}

func TestVerifyRejectsWrongSigningKey(t *testing.T) {
	_, priv := generateKeypair(t)
	otherPub, _ := generateKeypair(t)
	signer := NewSigner(IssuerBot, priv, time.Minute)
	verifier := NewVerifier(otherPub, "search", IssuerBot)

	token, err := signer.Mint("search")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestMiddlewareAttachesClaimsOnSuccess(t *testing.T) {
	pub, priv := generateKeypair(t)
	signer := NewSigner(IssuerBot, priv, time.Minute)
	verifier := NewVerifier(pub, "search", IssuerBot)

	token, err := signer.Mint("search")
	require.NoError(t, err)

	var sawIssuer string
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		sawIssuer = claims.Issuer
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(IssuerBot), sawIssuer)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	pub, _ := generateKeypair(t)
	verifier := NewVerifier(pub, "search", IssuerBot)

	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
