// Package dto provides data transfer objects for credential endpoints.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/JDIVE/google-workspace-remote-mcp/internal/validation"
)

// AuthorizeRequest contains the parameters for starting an authorization flow.
type AuthorizeRequest struct {
	OwnerID string `form:"owner_id"`
}

// Validate checks if the authorize request is valid.
func (r *AuthorizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
	)
}

// CredentialStatusResponse describes a stored credential without exposing any
// token material.
type CredentialStatusResponse struct {
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
	Scope       string    `json:"scope,omitempty"`
	Refreshable bool      `json:"refreshable"`
}

// CallbackResponse carries the session token minted after a completed
// authorization exchange.
type CallbackResponse struct {
	SessionToken string `json:"session_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
