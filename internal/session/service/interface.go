// Package service implements minting and verification of the gateway's own
// short-lived bearer session tokens.
package service

// Issuer mints and verifies HMAC-signed session tokens.
type Issuer interface {
	// Mint creates a signed token for subject valid for ttlSeconds.
	Mint(subject string, ttlSeconds int64) (string, error)

	// Verify validates a token and returns its subject. Signature
	// verification happens before any claim is inspected.
	Verify(token string) (string, error)
}
