package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sessionDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/session/domain"
)

// encodedHeader is the fixed JWT header for every token this issuer mints.
// Only HS256 is supported; the header's alg field is never trusted on verify.
var encodedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// HS256Issuer implements Issuer with HMAC-SHA256 signatures.
type HS256Issuer struct {
	secret         []byte
	clockTolerance time.Duration
	now            func() time.Time
}

// Compile-time interface check.
var _ Issuer = (*HS256Issuer)(nil)

// NewHS256Issuer creates a session token issuer. clockTolerance is applied to
// all time-based claim checks on verification.
func NewHS256Issuer(secret []byte, clockTolerance time.Duration) *HS256Issuer {
	return &HS256Issuer{
		secret:         secret,
		clockTolerance: clockTolerance,
		now:            time.Now,
	}
}

// Mint creates a signed token for subject valid for ttlSeconds.
func (i *HS256Issuer) Mint(subject string, ttlSeconds int64) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	now := i.now().Unix()
	claims := sessionDomain.Claims{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now + ttlSeconds,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + i.sign(signingInput), nil
}

// Verify validates a token and returns its subject.
//
// Check order is fixed: structure, signature, claim decoding, exp, nbf, iat,
// sub. No claim is decoded or acted upon before the signature matches.
func (i *HS256Issuer) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", sessionDomain.ErrTokenMalformed
	}

	signingInput := parts[0] + "." + parts[1]
	expected := i.sign(signingInput)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", sessionDomain.ErrTokenInvalidSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", sessionDomain.ErrTokenMalformed
	}

	var claims sessionDomain.Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", sessionDomain.ErrTokenMalformed
	}

	now := i.now()
	if !now.Before(time.Unix(claims.ExpiresAt, 0).Add(i.clockTolerance)) {
		return "", sessionDomain.ErrTokenExpired
	}
	if claims.NotBefore != 0 && now.Add(i.clockTolerance).Before(time.Unix(claims.NotBefore, 0)) {
		return "", sessionDomain.ErrTokenNotYetValid
	}
	if claims.IssuedAt != 0 && now.Add(i.clockTolerance).Before(time.Unix(claims.IssuedAt, 0)) {
		return "", sessionDomain.ErrTokenNotYetValid
	}
	if claims.Subject == "" {
		return "", sessionDomain.ErrTokenMalformed
	}

	return claims.Subject, nil
}

// sign computes the unpadded URL-safe base64 HMAC-SHA256 of the signing input.
func (i *HS256Issuer) sign(signingInput string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(signingInput))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
