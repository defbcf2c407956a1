// Package http provides HTTP handlers for the delegated authorization flow
// and credential management.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	csrfService "github.com/JDIVE/google-workspace-remote-mcp/internal/csrf/service"
	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/credential/http/dto"
	credentialUseCase "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/usecase"
	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/httputil"
	sessionHTTP "github.com/JDIVE/google-workspace-remote-mcp/internal/session/http"
	sessionService "github.com/JDIVE/google-workspace-remote-mcp/internal/session/service"
	customValidation "github.com/JDIVE/google-workspace-remote-mcp/internal/validation"
)

// CredentialHandler handles the delegated authorization flow and credential
// management endpoints.
type CredentialHandler struct {
	credentialUseCase credentialUseCase.UseCase
	stateManager      *csrfService.StateManager
	sessionIssuer     sessionService.Issuer
	oauthConfig       *oauth2.Config
	sessionTTL        int64
	logger            *slog.Logger
}

// NewCredentialHandler creates a credential handler with required dependencies.
func NewCredentialHandler(
	useCase credentialUseCase.UseCase,
	stateManager *csrfService.StateManager,
	sessionIssuer sessionService.Issuer,
	oauthConfig *oauth2.Config,
	sessionTTL int64,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: useCase,
		stateManager:      stateManager,
		sessionIssuer:     sessionIssuer,
		oauthConfig:       oauthConfig,
		sessionTTL:        sessionTTL,
		logger:            logger,
	}
}

// AuthorizeHandler starts a delegated authorization flow.
// GET /v1/authorize?owner_id=... - unauthenticated, per-IP rate limited.
// Issues a one-time state token bound to the owner and redirects to the
// upstream provider's consent page.
func (h *CredentialHandler) AuthorizeHandler(c *gin.Context) {
	var req dto.AuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	// Issuance is throttled per remote address so one client cannot farm
	// state tokens for the whole window.
	state, err := h.stateManager.Issue(c.Request.Context(), req.OwnerID, c.ClientIP())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if state == "" {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "Too many authorization attempts. Please retry later.",
		})
		return
	}

	authURL := h.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	)

	c.Redirect(http.StatusFound, authURL)
}

// CallbackHandler completes the authorization flow.
// GET /oauth2/callback?state=...&code=... - unauthenticated, per-IP rate limited.
// Consumes the state token, exchanges the code, stores the credential for the
// bound owner and mints a session token for them.
func (h *CredentialHandler) CallbackHandler(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		httputil.HandleBadRequestGin(c, apperrors.New("state and code parameters are required"), h.logger)
		return
	}

	ownerID, err := h.stateManager.Consume(c.Request.Context(), state)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if ownerID == "" {
		// Unknown, expired and replayed states are indistinguishable here.
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	token, err := h.oauthConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("authorization code exchange failed", slog.Any("error", err))
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "code exchange rejected"), h.logger)
		return
	}

	record := &credentialDomain.CredentialRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.UTC(),
		TokenType:    token.TokenType,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		record.Scope = scope
	}

	if err := h.credentialUseCase.StoreCredential(c.Request.Context(), ownerID, record); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	sessionToken, err := h.sessionIssuer.Mint(ownerID, h.sessionTTL)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CallbackResponse{
		SessionToken: sessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    h.sessionTTL,
	})
}

// GetHandler reports the status of the caller's stored credential.
// GET /v1/credentials - requires session authentication.
// Refreshes the credential first when it is expired, so a 200 response means
// the credential is currently usable. Token material is never returned.
func (h *CredentialHandler) GetHandler(c *gin.Context) {
	identity, ok := sessionHTTP.GetIdentity(c.Request.Context())
	if !ok || identity == "" {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	record, err := h.credentialUseCase.GetUsableCredential(c.Request.Context(), identity)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CredentialStatusResponse{
		ExpiresAt:   record.ExpiresAt.UTC().Truncate(time.Second),
		TokenType:   record.TokenType,
		Scope:       record.Scope,
		Refreshable: record.Refreshable(),
	})
}

// RevokeHandler revokes and deletes the caller's stored credential.
// DELETE /v1/credentials - requires session authentication.
// Returns 204 No Content; deletion happens even when the upstream
// notification fails.
func (h *CredentialHandler) RevokeHandler(c *gin.Context) {
	identity, ok := sessionHTTP.GetIdentity(c.Request.Context())
	if !ok || identity == "" {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if err := h.credentialUseCase.Revoke(c.Request.Context(), identity); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
