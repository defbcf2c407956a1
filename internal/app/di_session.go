package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	csrfService "github.com/JDIVE/google-workspace-remote-mcp/internal/csrf/service"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/ratelimit"
	sessionHTTP "github.com/JDIVE/google-workspace-remote-mcp/internal/session/http"
	sessionService "github.com/JDIVE/google-workspace-remote-mcp/internal/session/service"
)

// sessionState holds the lazily initialized session, state-token and rate
// limiting components.
type sessionState struct {
	issuer       sessionService.Issuer
	stateManager *csrfService.StateManager
	rateLimiter  *ratelimit.Limiter
	handler      *sessionHTTP.SessionHandler

	issuerInit       sync.Once
	stateManagerInit sync.Once
	rateLimiterInit  sync.Once
	handlerInit      sync.Once
}

// SessionIssuer returns the session token issuer.
func (c *Container) SessionIssuer() (sessionService.Issuer, error) {
	c.sessionState.issuerInit.Do(func() {
		if c.config.SessionSecret == "" {
			c.initErrors["sessionIssuer"] = fmt.Errorf("session secret is not configured")
			return
		}
		issuer := sessionService.Issuer(sessionService.NewHS256Issuer(
			[]byte(c.config.SessionSecret),
			c.config.SessionClockTolerance,
		))

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["sessionIssuer"] = fmt.Errorf("failed to get metrics for session issuer: %w", err)
			return
		}
		if businessMetrics != nil {
			issuer = sessionService.NewIssuerWithMetrics(issuer, businessMetrics)
		}

		c.sessionState.issuer = issuer
	})
	if storedErr, exists := c.initErrors["sessionIssuer"]; exists {
		return nil, storedErr
	}
	return c.sessionState.issuer, nil
}

// StateManager returns the one-time authorization state manager.
func (c *Container) StateManager() (*csrfService.StateManager, error) {
	c.sessionState.stateManagerInit.Do(func() {
		store, err := c.KVStore()
		if err != nil {
			c.initErrors["stateManager"] = fmt.Errorf("failed to get kv store for state manager: %w", err)
			return
		}
		c.sessionState.stateManager = csrfService.NewStateManager(
			store,
			c.config.CSRFStateTTL,
			int64(c.config.CSRFMaxIssuances),
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["stateManager"]; exists {
		return nil, storedErr
	}
	return c.sessionState.stateManager, nil
}

// RateLimiter returns the per-identity request rate limiter.
func (c *Container) RateLimiter() (*ratelimit.Limiter, error) {
	c.sessionState.rateLimiterInit.Do(func() {
		store, err := c.KVStore()
		if err != nil {
			c.initErrors["rateLimiter"] = fmt.Errorf("failed to get kv store for rate limiter: %w", err)
			return
		}
		c.sessionState.rateLimiter = ratelimit.NewLimiter(
			store,
			int64(c.config.RateLimitMaxRequests),
			c.config.RateLimitWindow,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["rateLimiter"]; exists {
		return nil, storedErr
	}
	return c.sessionState.rateLimiter, nil
}

// SessionHandler returns the session HTTP handler.
func (c *Container) SessionHandler() (*sessionHTTP.SessionHandler, error) {
	c.sessionState.handlerInit.Do(func() {
		issuer, err := c.SessionIssuer()
		if err != nil {
			c.initErrors["sessionHandler"] = fmt.Errorf("failed to get issuer for session handler: %w", err)
			return
		}
		c.sessionState.handler = sessionHTTP.NewSessionHandler(
			issuer,
			int64(c.config.SessionTokenTTL.Seconds()),
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["sessionHandler"]; exists {
		return nil, storedErr
	}
	return c.sessionState.handler, nil
}

// SessionAuthMiddleware returns the bearer session authentication middleware.
func (c *Container) SessionAuthMiddleware() (gin.HandlerFunc, error) {
	issuer, err := c.SessionIssuer()
	if err != nil {
		return nil, err
	}
	return sessionHTTP.SessionAuthMiddleware(issuer, c.Logger()), nil
}

// RateLimitMiddleware returns the per-identity rate limit middleware.
func (c *Container) RateLimitMiddleware() (gin.HandlerFunc, error) {
	limiter, err := c.RateLimiter()
	if err != nil {
		return nil, err
	}
	return sessionHTTP.RateLimitMiddleware(limiter, c.Logger()), nil
}

// parseScopes splits the comma-separated scope list from configuration.
func parseScopes(scopes string) []string {
	parts := strings.Split(scopes, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
