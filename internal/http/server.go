// Package http assembles the gateway's HTTP servers and shared middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	otelmetric "go.opentelemetry.io/otel/metric"

	credentialHTTP "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/http"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/httputil"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/metrics"
	sessionHTTP "github.com/JDIVE/google-workspace-remote-mcp/internal/session/http"
)

// ServerConfig holds the HTTP server wiring options.
type ServerConfig struct {
	Host string
	Port int

	CORSEnabled      bool
	CORSAllowOrigins string

	CallbackRateLimitEnabled bool
	CallbackRateLimitRPS     float64
	CallbackRateLimitBurst   int

	MetricsNamespace string
}

// Server is the gateway API server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer builds the API server with all routes and middleware wired.
//
// Route groups:
//   - /health, /ready: unauthenticated probes.
//   - /v1/authorize, /oauth2/callback: unauthenticated authorization flow,
//     optionally rate limited per remote address.
//   - /v1/sessions, /v1/credentials: session-authenticated, rate limited per
//     identity on the shared store.
func NewServer(
	cfg ServerConfig,
	sessionHandler *sessionHTTP.SessionHandler,
	credentialHandler *credentialHTTP.CredentialHandler,
	sessionAuth gin.HandlerFunc,
	identityRateLimit gin.HandlerFunc,
	meterProvider otelmetric.MeterProvider,
	logger *slog.Logger,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	public := router.Group("/")
	if cfg.CallbackRateLimitEnabled {
		public.Use(sessionHTTP.CallbackRateLimitMiddleware(
			cfg.CallbackRateLimitRPS,
			cfg.CallbackRateLimitBurst,
			logger,
		))
	}
	public.GET("/v1/authorize", credentialHandler.AuthorizeHandler)
	public.GET("/oauth2/callback", credentialHandler.CallbackHandler)

	authenticated := router.Group("/")
	authenticated.Use(sessionAuth)
	authenticated.Use(identityRateLimit)
	authenticated.POST("/v1/sessions", sessionHandler.RenewHandler)
	authenticated.GET("/v1/credentials", credentialHandler.GetHandler)
	authenticated.DELETE("/v1/credentials", credentialHandler.RevokeHandler)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httputil.ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		})
	})

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
