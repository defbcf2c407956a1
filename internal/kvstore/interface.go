// Package kvstore provides the shared key-value store used for encrypted
// credential records, one-time authorization state tokens, rate counters and
// rotation locks. Implementations are backed by Redis, PostgreSQL, MySQL or
// an in-memory map; all of them honor per-key TTLs.
package kvstore

import (
	"context"
	"time"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
)

var (
	// ErrKeyNotFound indicates the key does not exist or has expired.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")

	// ErrInvalidCounter indicates Increment was called on a key holding a
	// value that is not an integer counter.
	ErrInvalidCounter = errors.Wrap(errors.ErrConflict, "value is not a counter")
)

// Store defines the key-value operations required by the token security
// subsystem. All operations are safe for concurrent use.
type Store interface {
	// Get returns the value stored under key. Returns ErrKeyNotFound if the
	// key does not exist or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value. A ttl of
	// zero stores the value without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment atomically increments the integer counter stored under key
	// and returns the new value. The first increment creates the counter with
	// the given ttl; subsequent increments within the window leave the
	// expiration untouched so the window does not slide.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// SetNX stores value under key only if the key is absent (or expired).
	// Returns true if the value was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// DeleteIfEqual removes the key only if its current value equals value.
	// Returns true if the key was removed. Used to release locks without
	// clobbering a lock re-acquired by another holder.
	DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error)

	// Keys returns all live keys matching the given prefix. Intended for
	// administrative sweeps, not hot paths.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Sweeper is implemented by stores that require explicit removal of expired
// entries (the SQL backends; Redis and the memory store expire keys on their
// own).
type Sweeper interface {
	// DeleteExpired removes entries whose TTL has elapsed and returns the
	// number of entries removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
