package shared

import (
	"context"
	"time"
)

// IdempotencyStore claims client-supplied request keys so a retried request
// runs its side effects at most once within the TTL.
type IdempotencyStore interface {
	// Claim marks key as in use. Returns true if the key was newly claimed,
	// false if another request already holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a claimed key so the client may retry after a failure.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
