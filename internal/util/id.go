package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a URL-safe hex string, used for request ids and opaque
// session tokens. Entity ids use uuid instead.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
