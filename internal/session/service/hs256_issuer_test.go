package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	sessionDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/session/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestIssuer(t *testing.T, tolerance time.Duration, now time.Time) *HS256Issuer {
	t.Helper()

	issuer := NewHS256Issuer(testSecret, tolerance)
	issuer.now = func() time.Time { return now }
	return issuer
}

// signClaims builds a token with arbitrary claims, signed with the test secret.
func signClaims(t *testing.T, issuer *HS256Issuer, claims sessionDomain.Claims) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + issuer.sign(signingInput)
}

func TestHS256Issuer_Mint(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, 0, base)

	t.Run("Success_MintedTokenStructure", func(t *testing.T) {
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		assert.Equal(t, encodedHeader, parts[0])

		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		require.NoError(t, err)

		var claims sessionDomain.Claims
		require.NoError(t, json.Unmarshal(payload, &claims))
		assert.Equal(t, "user-123", claims.Subject)
		assert.Equal(t, base.Unix(), claims.IssuedAt)
		assert.Equal(t, base.Unix()+900, claims.ExpiresAt)
	})

	t.Run("Success_RoundTrip", func(t *testing.T) {
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		subject, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", subject)
	})

	t.Run("Error_EmptySubject", func(t *testing.T) {
		_, err := issuer.Mint("", 900)
		assert.Error(t, err)
	})
}

func TestHS256Issuer_Verify(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Error_WrongPartCount", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)

		for _, token := range []string{"", "onlyone", "two.parts", "a.b.c.d"} {
			_, err := issuer.Verify(token)
			assert.ErrorIs(t, err, sessionDomain.ErrTokenMalformed, "token %q", token)
		}
	})

	t.Run("Error_TamperedSignature", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		_, err = issuer.Verify(token[:len(token)-2] + "xx")
		assert.ErrorIs(t, err, sessionDomain.ErrTokenInvalidSignature)
	})

	t.Run("Error_TamperedPayload", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		// Swap the subject but keep the original signature.
		forged, err := json.Marshal(sessionDomain.Claims{
			Subject:   "user-456",
			IssuedAt:  base.Unix(),
			ExpiresAt: base.Unix() + 900,
		})
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		parts[1] = base64.RawURLEncoding.EncodeToString(forged)

		_, err = issuer.Verify(strings.Join(parts, "."))
		assert.ErrorIs(t, err, sessionDomain.ErrTokenInvalidSignature)
	})

	t.Run("Error_SignatureCheckedBeforeClaims", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)

		// Garbage payload with a broken signature must report the signature,
		// not the payload.
		garbage := encodedHeader + "." + base64.RawURLEncoding.EncodeToString([]byte("not json"))
		_, err := issuer.Verify(garbage + ".bogus-signature")
		assert.ErrorIs(t, err, sessionDomain.ErrTokenInvalidSignature)

		// The same payload correctly signed fails on decoding instead.
		_, err = issuer.Verify(garbage + "." + issuer.sign(garbage))
		assert.ErrorIs(t, err, sessionDomain.ErrTokenMalformed)
	})

	t.Run("Error_ExpiredToken", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		issuer.now = func() time.Time { return base.Add(901 * time.Second) }
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, sessionDomain.ErrTokenExpired)
	})

	t.Run("Success_ExpiryWithinClockTolerance", func(t *testing.T) {
		issuer := newTestIssuer(t, 30*time.Second, base)
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		issuer.now = func() time.Time { return base.Add(920 * time.Second) }
		subject, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", subject)
	})

	t.Run("Error_NotBeforeInFuture", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token := signClaims(t, issuer, sessionDomain.Claims{
			Subject:   "user-123",
			IssuedAt:  base.Unix(),
			ExpiresAt: base.Add(time.Hour).Unix(),
			NotBefore: base.Add(10 * time.Minute).Unix(),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sessionDomain.ErrTokenNotYetValid)
	})

	t.Run("Error_IssuedAtInFuture", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token := signClaims(t, issuer, sessionDomain.Claims{
			Subject:   "user-123",
			IssuedAt:  base.Add(10 * time.Minute).Unix(),
			ExpiresAt: base.Add(time.Hour).Unix(),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sessionDomain.ErrTokenNotYetValid)
	})

	t.Run("Success_FutureIssuedAtWithinTolerance", func(t *testing.T) {
		issuer := newTestIssuer(t, time.Minute, base)
		token := signClaims(t, issuer, sessionDomain.Claims{
			Subject:   "user-123",
			IssuedAt:  base.Add(30 * time.Second).Unix(),
			ExpiresAt: base.Add(time.Hour).Unix(),
		})

		subject, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", subject)
	})

	t.Run("Error_MissingSubject", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token := signClaims(t, issuer, sessionDomain.Claims{
			IssuedAt:  base.Unix(),
			ExpiresAt: base.Add(time.Hour).Unix(),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sessionDomain.ErrTokenMalformed)
	})

	t.Run("Error_AllFailuresAreUnauthorized", func(t *testing.T) {
		issuer := newTestIssuer(t, 0, base)
		token, err := issuer.Mint("user-123", 900)
		require.NoError(t, err)

		issuer.now = func() time.Time { return base.Add(time.Hour) }
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}
