package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/httputil"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/ratelimit"
)

// RateLimitMiddleware enforces the per-identity request budget on
// authenticated endpoints.
//
// MUST be used after SessionAuthMiddleware: the counter key is the
// authenticated identity, not the remote address, so the budget follows the
// caller across connections. A denied request returns 429 with the current
// window remainder in X-RateLimit-Remaining; store failures surface as 500
// rather than silently allowing the request through.
func RateLimitMiddleware(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == "" {
			logger.Error("rate limit middleware: no authenticated identity in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), identity)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		remaining, err := limiter.Remaining(c.Request.Context(), identity)
		if err == nil {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry once the window resets.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
