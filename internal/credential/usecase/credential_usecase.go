package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	credentialService "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/service"
)

// credentialUseCase implements UseCase.
type credentialUseCase struct {
	repo          CredentialRepository
	refreshClient credentialService.RefreshClient
	expiryMargin  time.Duration
	logger        *slog.Logger
}

// NewCredentialUseCase creates the credential lifecycle manager.
func NewCredentialUseCase(
	repo CredentialRepository,
	refreshClient credentialService.RefreshClient,
	expiryMargin time.Duration,
	logger *slog.Logger,
) UseCase {
	return &credentialUseCase{
		repo:          repo,
		refreshClient: refreshClient,
		expiryMargin:  expiryMargin,
		logger:        logger,
	}
}

// GetUsableCredential returns a credential guaranteed usable for at least the
// configured expiry margin.
//
// An expired record with a refresh token is refreshed through the upstream
// provider and the result is persisted before it is returned: a refresh
// result that was not durably stored is never handed to the caller, so a
// successful refresh can never be lost.
//
// On refresh failure the stored record is deliberately retained. The failure
// may be transient (network, upstream rate limit), and a later call can
// retry with the same stale-but-still-stored refresh token; only an explicit
// Revoke deletes state.
func (u *credentialUseCase) GetUsableCredential(ctx context.Context, identity string) (*credentialDomain.CredentialRecord, error) {
	record, err := u.repo.Load(ctx, identity)
	if err != nil {
		return nil, err
	}

	if !record.IsExpired(u.expiryMargin) {
		return record, nil
	}

	if !record.Refreshable() {
		return nil, credentialDomain.ErrCredentialUnrefreshable
	}

	result, err := u.refreshClient.Refresh(ctx, record.RefreshToken)
	if err != nil {
		return nil, err
	}

	updated := buildRefreshedRecord(record, result)

	// Persistence failure is equivalent to refresh failure: handing back a
	// token that was not durably stored would desynchronize a rotated
	// refresh token from the store.
	if err := u.repo.Store(ctx, identity, updated); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	u.logger.Debug("credential refreshed",
		slog.Time("expires_at", updated.ExpiresAt),
		slog.Bool("refresh_token_rotated", result.RefreshToken != ""),
	)

	return updated, nil
}

// StoreCredential persists a credential obtained from a completed
// authorization exchange.
func (u *credentialUseCase) StoreCredential(ctx context.Context, identity string, record *credentialDomain.CredentialRecord) error {
	return u.repo.Store(ctx, identity, record)
}

// Revoke notifies the provider that the grant should be revoked, then
// unconditionally deletes the stored record. Deletion runs even when the
// provider call fails: local cleanup must never be skipped because an
// external call misbehaved.
func (u *credentialUseCase) Revoke(ctx context.Context, identity string) error {
	record, err := u.repo.Load(ctx, identity)
	if err == nil {
		token := record.RefreshToken
		if token == "" {
			token = record.AccessToken
		}
		if revokeErr := u.refreshClient.Revoke(ctx, token); revokeErr != nil {
			u.logger.Warn("provider revocation failed", slog.Any("error", revokeErr))
		}
	}

	return u.repo.Delete(ctx, identity)
}

// buildRefreshedRecord merges a refresh result into the stored record: new
// access token and expiry, the rotated refresh token when the provider sent
// one (the original otherwise), and updated scope/type when present.
func buildRefreshedRecord(
	previous *credentialDomain.CredentialRecord,
	result *credentialService.RefreshResult,
) *credentialDomain.CredentialRecord {
	record := &credentialDomain.CredentialRecord{
		AccessToken:  result.AccessToken,
		RefreshToken: previous.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(result.ExpiresIn) * time.Second),
		TokenType:    previous.TokenType,
		Scope:        previous.Scope,
	}

	if result.RefreshToken != "" {
		record.RefreshToken = result.RefreshToken
	}
	if result.TokenType != "" {
		record.TokenType = result.TokenType
	}
	if result.Scope != "" {
		record.Scope = result.Scope
	}
	return record
}
