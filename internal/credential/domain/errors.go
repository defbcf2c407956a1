package domain

import (
	"fmt"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
)

// Credential lifecycle error definitions.
var (
	// ErrCredentialNotFound indicates no credential record exists for the identity.
	// The caller must send the user through a new authorization flow.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrCredentialUnrefreshable indicates the stored credential is expired
	// and carries no refresh token, so only re-authorization can recover it.
	ErrCredentialUnrefreshable = errors.Wrap(errors.ErrUnauthorized, "credential cannot be refreshed")

	// ErrCredentialCorrupted indicates a stored record failed to decrypt or
	// parse. This is deliberately distinct from ErrCredentialNotFound:
	// treating a decrypt failure as "not found" would silently mask tampering.
	ErrCredentialCorrupted = errors.Wrap(errors.ErrInvalidInput, "credential record corrupted")
)

// RefreshError indicates the upstream token refresh call failed.
//
// Permanent reports that the credential itself was rejected (e.g. the user
// revoked the grant) and retrying is pointless; the caller must re-authorize.
// A transient failure (network, upstream rate limit, 5xx) is safe to retry
// later with the same stored refresh token. Either way the stored record is
// retained; only explicit revocation deletes it.
type RefreshError struct {
	// StatusCode is the upstream HTTP status, or 0 for transport errors.
	StatusCode int
	// ErrorCode is the OAuth error code from the response body, when present.
	ErrorCode string
	// Permanent reports that retrying with the same refresh token cannot succeed.
	Permanent bool
	// Err is the underlying cause, when any.
	Err error
}

// Error implements the error interface. The message never includes token material.
func (e *RefreshError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("token refresh failed (%s): status=%d error=%s", kind, e.StatusCode, e.ErrorCode)
	}
	return fmt.Sprintf("token refresh failed (%s): status=%d", kind, e.StatusCode)
}

// Unwrap returns the underlying cause.
func (e *RefreshError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Permanent {
		return errors.ErrUnauthorized
	}
	return errors.ErrUnavailable
}
