package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const (
	sessionTokenBytes = 32
	shareTokenBytes   = 24
)

// NewSessionToken returns an opaque bearer token. Sessions are resolved by
// store lookup, so the token carries no structure; 256 bits of entropy make
// enumeration infeasible.
func NewSessionToken() (string, error) {
	return randomToken(sessionTokenBytes)
}

// NewShareToken returns the unguessable token that doubles as a share's
// public link segment.
func NewShareToken() (string, error) {
	return randomToken(shareTokenBytes)
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokensEqual compares two token values in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
