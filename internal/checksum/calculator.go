package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Calculator computes a content checksum.
type Calculator interface {
	Calculate(content []byte) string
}

// SHA256 is a zero-size Calculator producing lowercase hex SHA-256 digests.
type SHA256 struct{}

// New creates a SHA-256 calculator.
func New() SHA256 {
	return SHA256{}
}

// Calculate returns the hex SHA-256 of content.
func (SHA256) Calculate(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Short truncates a digest to its first 12 characters for log lines.
func Short(sum string) string {
	if len(sum) <= 12 {
		return sum
	}
	return sum[:12]
}
