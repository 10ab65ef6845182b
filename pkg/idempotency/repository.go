package idempotency

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("idempotency key not found")

// KeyRepository stores idempotency keys
type KeyRepository interface {
	// AcquireLock inserts key or locks the existing one. For an existing key it returns the
	// document as it was before this call; isNew reports whether this call created it.
	AcquireLock(ctx context.Context, key *IdempotencyKey) (existing *IdempotencyKey, isNew bool, err error)

	// StoreResponse records the response and releases the lock
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// ReleaseLock releases the lock without storing a response, so the request can be retried
	ReleaseLock(ctx context.Context, keyID string) error
}
