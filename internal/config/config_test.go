package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Success_Defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "0.0.0.0", cfg.ServerHost)
		assert.Equal(t, 8080, cfg.ServerPort)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "redis", cfg.StoreDriver)
		assert.Equal(t, "env", cfg.KeyringProvider)
		assert.Equal(t, "aes-gcm", cfg.CredentialCipher)
		assert.Equal(t, 1, cfg.CredentialKeyVersion)
		assert.Equal(t, 90*24*time.Hour, cfg.CredentialTTL)
		assert.Equal(t, 30*time.Second, cfg.CredentialExpiryMargin)
		assert.Equal(t, 30*time.Second, cfg.RotationLockTTL)
		assert.Equal(t, 3, cfg.RotationMaxRetries)
		assert.Equal(t, time.Hour, cfg.SessionTokenTTL)
		assert.Equal(t, 30*time.Second, cfg.SessionClockTolerance)
		assert.Equal(t, 5*time.Minute, cfg.CSRFStateTTL)
		assert.Equal(t, 10, cfg.CSRFMaxIssuances)
		assert.Equal(t, 100, cfg.RateLimitMaxRequests)
		assert.Equal(t, time.Minute, cfg.RateLimitWindow)
		assert.True(t, cfg.CallbackRateLimitEnabled)
		assert.True(t, cfg.MetricsEnabled)
		assert.Equal(t, "workspace_gateway", cfg.MetricsNamespace)
	})

	t.Run("Success_EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("CREDENTIAL_CIPHER", "chacha20-poly1305")
		t.Setenv("CREDENTIAL_KEY_VERSION", "3")
		t.Setenv("CREDENTIAL_KEY_PREVIOUS_VERSION", "2")
		t.Setenv("SESSION_TOKEN_TTL_SECONDS", "900")
		t.Setenv("RATE_LIMIT_MAX_REQUESTS", "50")
		t.Setenv("CSRF_MAX_ISSUANCES", "5")

		cfg := Load()

		assert.Equal(t, 9090, cfg.ServerPort)
		assert.Equal(t, "memory", cfg.StoreDriver)
		assert.Equal(t, "chacha20-poly1305", cfg.CredentialCipher)
		assert.Equal(t, 3, cfg.CredentialKeyVersion)
		assert.Equal(t, 2, cfg.CredentialKeyPreviousVersion)
		assert.Equal(t, 15*time.Minute, cfg.SessionTokenTTL)
		assert.Equal(t, 50, cfg.RateLimitMaxRequests)
		assert.Equal(t, 5, cfg.CSRFMaxIssuances)
	})
}

func TestConfig_GetGinMode(t *testing.T) {
	tests := []struct {
		logLevel string
		want     string
	}{
		{logLevel: "debug", want: "debug"},
		{logLevel: "info", want: "release"},
		{logLevel: "warn", want: "release"},
		{logLevel: "error", want: "release"},
		{logLevel: "unknown", want: "release"},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, cfg.GetGinMode())
		})
	}
}
