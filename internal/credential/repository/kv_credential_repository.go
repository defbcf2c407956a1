// Package repository implements encrypted-at-rest persistence for delegated
// credential records on the shared key-value store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
	cryptoService "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/service"
	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	credentialService "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/service"
	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
)

// KVCredentialRepository stores credential records AEAD-encrypted under the
// `tokens:` namespace with a fixed retention TTL.
//
// Load transparently handles key rotation: when a record decrypts only under
// the previous key, the rotation coordinator is invoked to re-encrypt it
// under the current key. Rotation failures never fail the read; the old-key
// ciphertext remains valid and decryptable.
type KVCredentialRepository struct {
	store   kvstore.Store
	engine  cryptoService.Engine
	rotator credentialService.Rotator
	ttl     time.Duration
	logger  *slog.Logger
}

// NewKVCredentialRepository creates a credential repository. rotator may be
// nil, disabling transparent rotation on load.
func NewKVCredentialRepository(
	store kvstore.Store,
	engine cryptoService.Engine,
	rotator credentialService.Rotator,
	ttl time.Duration,
	logger *slog.Logger,
) *KVCredentialRepository {
	return &KVCredentialRepository{
		store:   store,
		engine:  engine,
		rotator: rotator,
		ttl:     ttl,
		logger:  logger,
	}
}

// Store encrypts the record under the current key and persists it with the
// retention TTL, overwriting any prior value for the identity.
func (r *KVCredentialRepository) Store(ctx context.Context, identity string, record *credentialDomain.CredentialRecord) error {
	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal credential record: %w", err)
	}

	encrypted, err := r.engine.Encrypt(plaintext)
	if err != nil {
		return err
	}

	value, err := encrypted.Marshal()
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, credentialDomain.TokenKey(identity), value, r.ttl); err != nil {
		return fmt.Errorf("failed to persist credential record: %w", err)
	}
	return nil
}

// Load reads and decrypts the record for identity.
//
// Returns ErrCredentialNotFound when no entry exists, and
// ErrCredentialCorrupted when an entry exists but fails to decrypt or parse.
// The two are deliberately distinct: a decrypt failure may indicate tampering
// and must not masquerade as a missing record.
func (r *KVCredentialRepository) Load(ctx context.Context, identity string) (*credentialDomain.CredentialRecord, error) {
	value, err := r.store.Get(ctx, credentialDomain.TokenKey(identity))
	if err != nil {
		if apperrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, credentialDomain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to read credential record: %w", err)
	}

	encrypted, err := cryptoDomain.UnmarshalEncryptedRecord(value)
	if err != nil {
		return nil, credentialDomain.ErrCredentialCorrupted
	}

	plaintext, usedFallback, err := r.engine.Decrypt(encrypted)
	if err != nil {
		return nil, credentialDomain.ErrCredentialCorrupted
	}

	if usedFallback && r.rotator != nil {
		// Best-effort: the plaintext is already recovered, so rotation
		// trouble must not surface to the caller.
		if err := r.rotator.Rotate(ctx, identity, plaintext, encrypted.Version); err != nil {
			r.logger.Warn("credential rotation failed",
				slog.Int("stored_version", encrypted.Version),
				slog.Any("error", err))
		}
	}

	var record credentialDomain.CredentialRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, credentialDomain.ErrCredentialCorrupted
	}
	return &record, nil
}

// Delete removes the record for identity. Idempotent.
func (r *KVCredentialRepository) Delete(ctx context.Context, identity string) error {
	if err := r.store.Delete(ctx, credentialDomain.TokenKey(identity)); err != nil {
		return fmt.Errorf("failed to delete credential record: %w", err)
	}
	return nil
}
