package store

import (
	"context"
	"time"
)

// Invalidator is called by every mutating store operation that changes what a
// user's resolve would return, before the operation reports success. This is
// what keeps "grant then resolve" free of any eventual-consistency window.
type Invalidator func(userID string)

// ResolvedCache holds serialized effective permission sets keyed by user id.
// Entries carry a short TTL as a backstop; explicit invalidation is the real
// coherence mechanism.
type ResolvedCache interface {
	Get(ctx context.Context, userID string) ([]byte, bool, error)
	Set(ctx context.Context, userID string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
	Close() error
}
