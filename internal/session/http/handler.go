package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/httputil"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/session/http/dto"
	sessionService "github.com/JDIVE/google-workspace-remote-mcp/internal/session/service"
)

// SessionHandler handles HTTP requests for session token management.
type SessionHandler struct {
	issuer     sessionService.Issuer
	ttlSeconds int64
	logger     *slog.Logger
}

// NewSessionHandler creates a session handler. ttlSeconds is the lifetime of
// minted tokens.
func NewSessionHandler(issuer sessionService.Issuer, ttlSeconds int64, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		issuer:     issuer,
		ttlSeconds: ttlSeconds,
		logger:     logger,
	}
}

// RenewHandler mints a fresh session token for the authenticated identity.
// POST /v1/sessions - requires a valid (not yet expired) session token.
// Returns 201 Created with the new token.
func (h *SessionHandler) RenewHandler(c *gin.Context) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok || identity == "" {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	token, err := h.issuer.Mint(identity, h.ttlSeconds)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{
		SessionToken: token,
		TokenType:    "Bearer",
		ExpiresIn:    h.ttlSeconds,
	})
}
