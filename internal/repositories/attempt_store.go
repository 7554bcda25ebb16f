package repositories

import (
	"context"
	"time"
)

// KeyValueStore is the persistence contract consumed by the login governor.
// Values are opaque serialized attempt records. Writes are last-write-wins;
// implementations must be safe for concurrent use.
type KeyValueStore interface {
	// Get returns the stored value and true, or "" and false when the key is absent or expired
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// RetainingStore is implemented by stores that expire records. SetRetained
// writes like Set but keeps the record live at least until keepUntil, even
// past the store's own TTL.
type RetainingStore interface {
	SetRetained(ctx context.Context, key, value string, keepUntil time.Time) error
}

// Sweeper is implemented by stores that need periodic removal of expired records
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// HealthChecker is implemented by stores backed by a remote service
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// expiryFrom returns the absolute expiry for a write at now, or nil when ttl is unbounded
func expiryFrom(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := now.Add(ttl)
	return &t
}

// retainedExpiry is the later of the ttl expiry and keepUntil, or nil when ttl is unbounded
func retainedExpiry(now time.Time, ttl time.Duration, keepUntil time.Time) *time.Time {
	exp := expiryFrom(now, ttl)
	if exp != nil && keepUntil.After(*exp) {
		return &keepUntil
	}
	return exp
}
