package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// RandomToken returns a URL-safe random token with byteLen bytes of entropy,
// base64-encoded without padding. Used for host tokens and session keys,
// which must be unguessable.
func RandomToken(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}
