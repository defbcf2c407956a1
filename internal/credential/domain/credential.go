package domain

import (
	"time"
)

// TokenType is the delegated-credential type issued by the upstream provider.
const TokenTypeBearer = "Bearer"

// CredentialRecord is the delegated access/refresh token pair stored per user
// identity. The record is created on the first successful authorization
// exchange, overwritten in place on every refresh, and deleted only on
// explicit revocation. The subsystem never aggregates records across
// identities.
type CredentialRecord struct {
	// AccessToken is the short-lived delegated access token.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived token used to obtain new access tokens.
	// Empty when the provider did not grant offline access.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the absolute expiry of the access token.
	ExpiresAt time.Time `json:"expires_at"`

	// TokenType is the credential type, typically "Bearer".
	TokenType string `json:"token_type"`

	// Scope is the space-delimited set of granted scopes.
	Scope string `json:"scope,omitempty"`
}

// IsExpired reports whether the access token is expired or will expire within
// the given margin. The margin absorbs clock skew and request latency so a
// credential handed to a caller stays valid long enough to be used.
func (c *CredentialRecord) IsExpired(margin time.Duration) bool {
	return !time.Now().UTC().Add(margin).Before(c.ExpiresAt)
}

// Refreshable reports whether the record carries a refresh token.
func (c *CredentialRecord) Refreshable() bool {
	return c.RefreshToken != ""
}
