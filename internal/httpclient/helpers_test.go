package httpclient

import (
	"crypto/ed25519"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/auth"
)

func generateTestKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}

func newTestSigner(priv ed25519.PrivateKey) *auth.Signer {
	return auth.NewSigner(auth.IssuerBot, priv, time.Minute)
}
