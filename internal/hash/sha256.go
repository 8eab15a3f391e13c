// Package hash computes content digests used for document deduplication.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256 hashes content with SHA-256 and returns a lowercase hex digest.
type SHA256 struct{}

// NewSHA256 returns a SHA256 hasher.
func NewSHA256() *SHA256 {
	return &SHA256{}
}

// Hash returns the hex-encoded SHA-256 digest of data.
func (h *SHA256) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
