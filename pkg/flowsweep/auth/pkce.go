package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// Session holds the ephemeral credentials for one authorization attempt. A
// session is consumed by exactly one listener and one token exchange and is
// discarded afterwards regardless of outcome.
type Session struct {
	State         string
	CodeVerifier  string
	CodeChallenge string
	Port          int
	Deadline      time.Time
}

// NewSession generates a fresh PKCE verifier/challenge pair and an independent
// CSRF state token for the given callback port. The verifier is 32 random
// bytes base64url-encoded (43 characters, within the 43-128 range RFC 7636
// requires).
func NewSession(port int) (*Session, error) {
	verifier, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	state, err := randomToken(24)
	if err != nil {
		return nil, err
	}
	return &Session{
		State:         state,
		CodeVerifier:  verifier,
		CodeChallenge: Challenge(verifier),
		Port:          port,
	}, nil
}

// Challenge derives the S256 code challenge for a verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
