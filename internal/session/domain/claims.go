// Package domain defines the session token claim set and verification errors.
package domain

// Claims is the claim set carried by a gateway session token.
//
// Times are Unix seconds. NotBefore is optional; a zero value means the
// claim is absent and is not enforced.
type Claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	NotBefore int64  `json:"nbf,omitempty"`
}
