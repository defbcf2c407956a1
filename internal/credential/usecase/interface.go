// Package usecase implements the credential lifecycle: deciding when a
// stored credential is stale and driving the refresh-and-persist cycle.
package usecase

import (
	"context"

	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
)

// CredentialRepository defines encrypted persistence of credential records.
type CredentialRepository interface {
	// Store persists the record for identity, overwriting any prior value.
	Store(ctx context.Context, identity string, record *credentialDomain.CredentialRecord) error

	// Load returns the record for identity, ErrCredentialNotFound when
	// absent, or ErrCredentialCorrupted when it fails to decrypt or parse.
	Load(ctx context.Context, identity string) (*credentialDomain.CredentialRecord, error)

	// Delete removes the record for identity. Idempotent.
	Delete(ctx context.Context, identity string) error
}

// UseCase defines the credential lifecycle operations used by the protocol
// dispatch layer.
type UseCase interface {
	// GetUsableCredential returns a non-expired credential for identity,
	// refreshing and persisting it first when needed.
	GetUsableCredential(ctx context.Context, identity string) (*credentialDomain.CredentialRecord, error)

	// StoreCredential persists a credential obtained from a completed
	// authorization exchange.
	StoreCredential(ctx context.Context, identity string, record *credentialDomain.CredentialRecord) error

	// Revoke notifies the provider (best-effort) and deletes the stored record.
	Revoke(ctx context.Context, identity string) error
}
