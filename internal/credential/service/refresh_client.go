package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
)

// maxErrorBodySize bounds how much of an upstream error response is read.
const maxErrorBodySize = 4 << 10

// HTTPRefreshClient implements RefreshClient against a standard OAuth 2.0
// token endpoint (grant_type=refresh_token) and revocation endpoint.
type HTTPRefreshClient struct {
	httpClient   *http.Client
	tokenURL     string
	revokeURL    string
	clientID     string
	clientSecret string
}

// Compile-time interface check.
var _ RefreshClient = (*HTTPRefreshClient)(nil)

// NewHTTPRefreshClient creates a refresh client for the given provider endpoints.
func NewHTTPRefreshClient(tokenURL, revokeURL, clientID, clientSecret string) *HTTPRefreshClient {
	return &HTTPRefreshClient{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		tokenURL:     tokenURL,
		revokeURL:    revokeURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// refreshErrorBody is the OAuth error response shape from the token endpoint.
type refreshErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh exchanges a refresh token for a new access token.
//
// Failures are mapped to *domain.RefreshError. A 400/401/403 response, or an
// explicit invalid_grant error code, marks the credential permanently
// invalid; 429 and 5xx responses and transport errors are transient and safe
// to retry with the same stored refresh token.
func (c *HTTPRefreshClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &credentialDomain.RefreshError{Err: fmt.Errorf("failed to build refresh request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &credentialDomain.RefreshError{Err: fmt.Errorf("refresh request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapFailure(resp)
	}

	var result RefreshResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &credentialDomain.RefreshError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to parse refresh response: %w", err),
		}
	}
	if result.AccessToken == "" {
		return nil, &credentialDomain.RefreshError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("refresh response missing access token"),
		}
	}

	return &result, nil
}

// Revoke posts the token to the provider's revocation endpoint. Best-effort:
// any non-success status is returned as a plain error for logging.
func (c *HTTPRefreshClient) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke request rejected: status=%d", resp.StatusCode)
	}
	return nil
}

// mapFailure converts a non-success token endpoint response into a typed
// RefreshError. The upstream status code is the permanence discriminator and
// is passed through for the caller's retry policy.
func (c *HTTPRefreshClient) mapFailure(resp *http.Response) *credentialDomain.RefreshError {
	var body refreshErrorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	_ = json.Unmarshal(raw, &body)

	permanent := false
	switch {
	case body.Error == "invalid_grant":
		permanent = true
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		permanent = true
	}

	return &credentialDomain.RefreshError{
		StatusCode: resp.StatusCode,
		ErrorCode:  body.Error,
		Permanent:  permanent,
	}
}
