package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// Key validation errors
var (
	ErrKeyRequired = errors.New("idempotency key is required")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length")
	ErrKeyInvalid  = errors.New("idempotency key contains invalid characters")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateKey checks the key format and length
func ValidateKey(key string, maxLength int) error {
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) > maxLength {
		return ErrKeyTooLong
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// ComputeFingerprint computes a SHA256 fingerprint of the request body
func ComputeFingerprint(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// NormalizeKey trims whitespace
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}
