// Package service provides credential-domain services: the rotation
// coordinator that re-encrypts records found under a superseded key, and the
// HTTP client for the upstream token refresh and revocation endpoints.
package service

import (
	"context"
)

// RefreshResult carries the upstream provider's answer to a refresh call.
type RefreshResult struct {
	// AccessToken is the newly minted access token.
	AccessToken string `json:"access_token"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
	// RefreshToken is a rotated refresh token, when the provider rotated it.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is the credential type, typically "Bearer".
	TokenType string `json:"token_type,omitempty"`
	// Scope is the space-delimited set of granted scopes.
	Scope string `json:"scope,omitempty"`
}

// RefreshClient is the collaborator boundary to the upstream OAuth provider.
// Failures are returned as *domain.RefreshError so callers can distinguish
// permanently invalid credentials from transient upstream trouble.
type RefreshClient interface {
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)

	// Revoke asks the provider to revoke the given token. Best-effort: the
	// caller deletes local state regardless of the outcome.
	Revoke(ctx context.Context, token string) error
}

// Rotator re-encrypts a credential record found under a superseded key.
// Implementations must tolerate concurrent workers attempting the same
// record and must never invalidate the record on failure.
type Rotator interface {
	// Rotate re-encrypts the plaintext record for identity under the current
	// key. plaintext is the already-decrypted stored value; storedVersion is
	// the key version it was found under.
	Rotate(ctx context.Context, identity string, plaintext []byte, storedVersion int) error
}
