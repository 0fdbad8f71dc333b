package auth

import (
	"crypto/ed25519"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadPublicKey resolves an Ed25519 public key from one of three forms
// (§4.3): a file path, a single-line PEM with literal "\n" escapes, or
// a JSON array of PEM lines. The form is detected, not configured,
// mirroring the teacher's sanitizeFile/sanitizeLogLevel pattern of
// normalizing a config value at load time rather than at every call site.
func LoadPublicKey(spec string) (ed25519.PublicKey, error) {
	pemBytes, err := resolvePEM(spec)
	if err != nil {
		return nil, fmt.Errorf("auth: load public key: %w", err)
	}
	pub, err := parsePublicKeyPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return pub, nil
}

// LoadPrivateKey resolves an Ed25519 private key the same way as
// LoadPublicKey.
func LoadPrivateKey(spec string) (ed25519.PrivateKey, error) {
	pemBytes, err := resolvePEM(spec)
	if err != nil {
		return nil, fmt.Errorf("auth: load private key: %w", err)
	}
	priv, err := parsePrivateKeyPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	return priv, nil
}

// resolvePEM normalizes spec into raw PEM bytes regardless of which of
// the three supported forms it is.
func resolvePEM(spec string) ([]byte, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, errors.New("empty key spec")
	}

	// JSON array of PEM lines, e.g. ["-----BEGIN ...-----", "MIIJ...", "-----END ...-----"].
	if strings.HasPrefix(trimmed, "[") {
		var lines []string
		if err := json.Unmarshal([]byte(trimmed), &lines); err != nil {
			return nil, fmt.Errorf("decode JSON PEM line array: %w", err)
		}
		return []byte(strings.Join(lines, "\n")), nil
	}

	// Single-line PEM with escaped newlines, e.g. "-----BEGIN...-----\nMIIJ...\n-----END...-----".
	if strings.Contains(trimmed, "-----BEGIN") {
		return []byte(strings.ReplaceAll(trimmed, `\n`, "\n")), nil
	}

	// Otherwise treat spec as a file path.
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", trimmed, err)
	}
	return data, nil
}

func parsePublicKeyPEM(data []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	pub, err := parseEd25519PublicKeyDER(block.Bytes)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func parsePrivateKeyPEM(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	priv, err := parseEd25519PrivateKeyDER(block.Bytes)
	if err != nil {
		return nil, err
	}
	return priv, nil
}
