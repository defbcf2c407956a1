package domain

import "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"

// Session token verification errors. All of them unwrap to ErrUnauthorized so
// the HTTP layer maps them uniformly to a 401 without inspecting each one.
var (
	// ErrTokenMalformed indicates the token does not have the expected
	// structure (wrong part count, bad encoding, invalid claim JSON, or a
	// missing subject).
	ErrTokenMalformed = errors.Wrap(errors.ErrUnauthorized, "session token malformed")

	// ErrTokenExpired indicates the token's expiry is in the past beyond
	// the configured clock tolerance.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "session token expired")

	// ErrTokenNotYetValid indicates the token's nbf or iat claim is in the
	// future beyond the configured clock tolerance.
	ErrTokenNotYetValid = errors.Wrap(errors.ErrUnauthorized, "session token not yet valid")

	// ErrTokenInvalidSignature indicates the HMAC signature does not match.
	ErrTokenInvalidSignature = errors.Wrap(errors.ErrUnauthorized, "session token signature invalid")
)
