package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
	cryptoService "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/service"
	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/lock"
)

// RotationCoordinator re-encrypts credential records found under the previous
// key so that the previous key can eventually be retired.
//
// With a mutex configured, each identity's rotation runs under a TTL-bounded
// advisory lock: losing the acquisition race means another worker owns the
// rotation and this one skips silently. Without a mutex the coordinator falls
// back to an optimistic strategy: it re-reads the stored version, no-ops when
// someone else already finished, and otherwise writes the re-encrypted value
// with a small bounded retry count. Two workers both writing is wasted work,
// not a correctness violation, since both produce an equivalent record.
//
// Rotation is strictly best-effort: on any write failure the old-key
// ciphertext stays in place and remains decryptable.
type RotationCoordinator struct {
	store      kvstore.Store
	engine     cryptoService.Engine
	mutex      lock.NamedMutex
	lockTTL    time.Duration
	maxRetries int
	recordTTL  time.Duration
	logger     *slog.Logger
}

// Compile-time interface check.
var _ Rotator = (*RotationCoordinator)(nil)

// NewRotationCoordinator creates a rotation coordinator. mutex may be nil, in
// which case only the optimistic strategy is used.
func NewRotationCoordinator(
	store kvstore.Store,
	engine cryptoService.Engine,
	mutex lock.NamedMutex,
	lockTTL time.Duration,
	maxRetries int,
	recordTTL time.Duration,
	logger *slog.Logger,
) *RotationCoordinator {
	return &RotationCoordinator{
		store:      store,
		engine:     engine,
		mutex:      mutex,
		lockTTL:    lockTTL,
		maxRetries: maxRetries,
		recordTTL:  recordTTL,
		logger:     logger,
	}
}

// Rotate re-encrypts the record for identity under the current key.
func (r *RotationCoordinator) Rotate(ctx context.Context, identity string, plaintext []byte, storedVersion int) error {
	if storedVersion == r.engine.CurrentVersion() {
		return nil
	}

	if r.mutex != nil {
		return r.rotateWithLock(ctx, identity, plaintext)
	}
	return r.rotateOptimistic(ctx, identity, plaintext)
}

// rotateWithLock runs the rotation under the per-identity advisory lock.
// A busy lock means another worker is already rotating this record.
func (r *RotationCoordinator) rotateWithLock(ctx context.Context, identity string, plaintext []byte) error {
	lockKey := credentialDomain.RotationLockKey(identity)

	token, ok, err := r.mutex.Acquire(ctx, lockKey, r.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire rotation lock: %w", err)
	}
	if !ok {
		r.logger.Debug("rotation lock busy, skipping",
			slog.String("identity", truncateIdentity(identity)))
		return nil
	}
	defer func() {
		if releaseErr := r.mutex.Release(ctx, lockKey, token); releaseErr != nil {
			r.logger.Warn("failed to release rotation lock",
				slog.String("identity", truncateIdentity(identity)),
				slog.Any("error", releaseErr))
		}
	}()

	// Re-check under the lock: a previous holder may have finished already.
	current, err := r.storedVersion(ctx, identity)
	if err != nil {
		return err
	}
	if current == r.engine.CurrentVersion() {
		return nil
	}

	return r.writeRotated(ctx, identity, plaintext)
}

// rotateOptimistic re-reads the stored version and writes the re-encrypted
// record, bounded by maxRetries.
func (r *RotationCoordinator) rotateOptimistic(ctx context.Context, identity string, plaintext []byte) error {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		current, err := r.storedVersion(ctx, identity)
		if err != nil {
			lastErr = err
			continue
		}
		if current == r.engine.CurrentVersion() {
			// Someone else finished the rotation.
			return nil
		}

		if err := r.writeRotated(ctx, identity, plaintext); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("rotation gave up after %d attempts: %w", r.maxRetries, lastErr)
}

// storedVersion reads the key version of the currently stored record.
func (r *RotationCoordinator) storedVersion(ctx context.Context, identity string) (int, error) {
	value, err := r.store.Get(ctx, credentialDomain.TokenKey(identity))
	if err != nil {
		return 0, fmt.Errorf("failed to read stored record: %w", err)
	}

	record, err := cryptoDomain.UnmarshalEncryptedRecord(value)
	if err != nil {
		return 0, err
	}
	return record.Version, nil
}

// writeRotated encrypts the plaintext under the current key and overwrites
// the stored record.
func (r *RotationCoordinator) writeRotated(ctx context.Context, identity string, plaintext []byte) error {
	record, err := r.engine.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to re-encrypt record: %w", err)
	}

	value, err := record.Marshal()
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, credentialDomain.TokenKey(identity), value, r.recordTTL); err != nil {
		return fmt.Errorf("failed to write rotated record: %w", err)
	}

	r.logger.Info("credential record rotated",
		slog.String("identity", truncateIdentity(identity)),
		slog.Int("key_version", record.Version),
	)
	return nil
}

// truncateIdentity shortens an identity for diagnostics (first 8 characters
// plus ellipsis) so log lines never carry a full identifier.
func truncateIdentity(identity string) string {
	if len(identity) <= 8 {
		return identity
	}
	return identity[:8] + "..."
}
