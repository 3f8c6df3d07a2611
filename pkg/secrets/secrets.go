// Package secrets generates opaque credentials (session tokens). Tokens are
// random lookup keys scoped to a session's lifetime, not passwords; stores
// index them directly and revocation deletes the session.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 32

// Generate returns a URL-safe random secret.
func Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
