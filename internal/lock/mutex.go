// Package lock provides a named-mutex abstraction for coordinating work
// across concurrent gateway instances. The only consumer is the credential
// key-rotation path, which must re-encrypt each record exactly once.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
)

// NamedMutex is a time-bounded advisory lock. Failing to acquire is not an
// error: it means another holder is responsible for the guarded work. The
// TTL guarantees a crashed holder cannot block future acquisitions forever.
type NamedMutex interface {
	// Acquire attempts to take the lock. On success it returns an opaque
	// fencing token that must be presented to Release; ok is false when the
	// lock is already held.
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)

	// Release releases the lock if it is still held under the given token.
	// Releasing a lock that expired or was re-acquired by someone else is a
	// silent no-op.
	Release(ctx context.Context, name string, token string) error
}

// KVMutex implements NamedMutex on the shared key-value store using
// conditional writes: SetNX to acquire and compare-and-delete to release.
type KVMutex struct {
	store kvstore.Store
}

// Compile-time interface check.
var _ NamedMutex = (*KVMutex)(nil)

// NewKVMutex creates a store-backed named mutex.
func NewKVMutex(store kvstore.Store) *KVMutex {
	return &KVMutex{store: store}
}

// Acquire attempts to take the lock by storing a random fencing token under
// the lock name. The token prevents a slow holder from releasing a lock that
// has since expired and been re-acquired.
func (m *KVMutex) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := m.store.SetNX(ctx, name, []byte(token), ttl)
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release releases the lock only if the stored token still matches.
func (m *KVMutex) Release(ctx context.Context, name string, token string) error {
	if _, err := m.store.DeleteIfEqual(ctx, name, []byte(token)); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
