package helpers

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the hex-encoded SHA-256 of a content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ChecksumString is a shortcut for Checksum on text.
func ChecksumString(text string) string {
	return Checksum([]byte(text))
}
