// Package auth implements SearchGram's inter-service JWT scheme (§4.3):
// EdDSA over a single shared Ed25519 keypair, short-lived tokens minted
// fresh per outbound call, and server-side verification of signature,
// expiry, audience, and issuer allow-list.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer identifies which of the three services minted a token.
type Issuer string

const (
	IssuerBot     Issuer = "bot"
	IssuerUserbot Issuer = "userbot"
	IssuerSearch  Issuer = "search"
)

// Claims is the registered claim set every SearchGram token carries.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer mints fresh tokens for one issuing service.
type Signer struct {
	issuer     Issuer
	privateKey ed25519.PrivateKey
	ttl        time.Duration
}

// NewSigner builds a Signer for issuer, using privateKey to sign and
// ttl as the token lifetime (§4.3 default: 300s).
func NewSigner(issuer Issuer, privateKey ed25519.PrivateKey, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Signer{issuer: issuer, privateKey: privateKey, ttl: ttl}
}

// Mint produces a fresh, signed token addressed to aud.
func (s *Signer) Mint(aud string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    string(s.issuer),
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verifier checks inbound tokens against one server's audience and
// issuer allow-list.
type Verifier struct {
	publicKey      ed25519.PublicKey
	audience       string
	allowedIssuers map[Issuer]struct{}
}

// NewVerifier builds a Verifier for a server expecting aud and tokens
// from any of allowedIssuers.
func NewVerifier(publicKey ed25519.PublicKey, aud string, allowedIssuers ...Issuer) *Verifier {
	allow := make(map[Issuer]struct{}, len(allowedIssuers))
	for _, iss := range allowedIssuers {
		allow[iss] = struct{}{}
	}
	return &Verifier{publicKey: publicKey, audience: aud, allowedIssuers: allow}
}

// Errors returned by Verify; servers map any of these to HTTP 401.
var (
	ErrMalformed     = errors.New("auth: malformed token")
	ErrExpired       = errors.New("auth: token expired")
	ErrWrongAudience = errors.New("auth: audience mismatch")
	ErrIssuerDenied  = errors.New("auth: issuer not in allow-list")
)

// Verify validates signature, expiry, audience, and issuer membership,
// returning the parsed claims on success.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrMalformed, t.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !token.Valid {
		return nil, ErrMalformed
	}

	aud := claims.Audience
	if len(aud) == 0 || aud[0] != v.audience {
		return nil, ErrWrongAudience
	}

	if _, ok := v.allowedIssuers[Issuer(claims.Issuer)]; !ok {
		return nil, ErrIssuerDenied
	}

	return claims, nil
}
