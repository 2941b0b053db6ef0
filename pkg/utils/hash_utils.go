package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher produces stable fingerprints for values that must not be logged verbatim
// (API logins, endpoints, uploaded file names)
type Hasher struct{}

// NewHasher creates a new hasher instance
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint returns the hex SHA-256 of value, or "" for empty input
func (h *Hasher) Fingerprint(value string) string {
	if value == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// FingerprintShort returns the first 8 characters of the fingerprint
// Useful for logging and display purposes
func (h *Hasher) FingerprintShort(value string) string {
	full := h.Fingerprint(value)
	if len(full) >= 8 {
		return full[:8]
	}
	return full
}

// Global instance for convenience
var globalHasher = NewHasher()

// Fingerprint is a convenience function that uses the global hasher
func Fingerprint(value string) string {
	return globalHasher.Fingerprint(value)
}

// FingerprintShort is a convenience function that uses the global hasher
func FingerprintShort(value string) string {
	return globalHasher.FingerprintShort(value)
}
