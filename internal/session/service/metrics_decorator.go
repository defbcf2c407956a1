package service

import (
	"context"
	"time"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/metrics"
)

// issuerWithMetrics decorates Issuer with metrics instrumentation.
type issuerWithMetrics struct {
	next    Issuer
	metrics metrics.BusinessMetrics
}

// NewIssuerWithMetrics wraps an Issuer with metrics recording.
func NewIssuerWithMetrics(issuer Issuer, m metrics.BusinessMetrics) Issuer {
	return &issuerWithMetrics{
		next:    issuer,
		metrics: m,
	}
}

// Mint records metrics for token minting operations.
func (i *issuerWithMetrics) Mint(subject string, ttlSeconds int64) (string, error) {
	start := time.Now()
	token, err := i.next.Mint(subject, ttlSeconds)

	status := "success"
	if err != nil {
		status = "error"
	}

	ctx := context.Background()
	i.metrics.RecordOperation(ctx, "session", "mint", status)
	i.metrics.RecordDuration(ctx, "session", "mint", time.Since(start), status)

	return token, err
}

// Verify records metrics for token verification operations.
func (i *issuerWithMetrics) Verify(token string) (string, error) {
	start := time.Now()
	subject, err := i.next.Verify(token)

	status := "success"
	if err != nil {
		status = "error"
	}

	ctx := context.Background()
	i.metrics.RecordOperation(ctx, "session", "verify", status)
	i.metrics.RecordDuration(ctx, "session", "verify", time.Since(start), status)

	return subject, err
}
