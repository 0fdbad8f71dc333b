package auth

import (
	"crypto/ed25519"
	"crypto/x509"
	"fmt"
)

// parseEd25519PublicKeyDER and parseEd25519PrivateKeyDER use
// crypto/x509 directly: key-material parsing is cryptographic plumbing
// with no ecosystem equivalent in the retrieval pack (none of the pack
// repos bring their own ASN.1/PKIX decoder), so the standard library is
// the correct and only tool here.
func parseEd25519PublicKeyDER(der []byte) (ed25519.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse PKIX public key: %w", err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key is not Ed25519, got %T", pub)
	}
	return edPub, nil
}

func parseEd25519PrivateKeyDER(der []byte) (ed25519.PrivateKey, error) {
	priv, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
	}
	edPriv, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not Ed25519, got %T", priv)
	}
	return edPriv, nil
}
