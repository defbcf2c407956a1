// Package dto provides data transfer objects for session endpoints.
package dto

// SessionResponse carries a freshly minted session token.
type SessionResponse struct {
	SessionToken string `json:"session_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
