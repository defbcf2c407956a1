package usecase

import (
	"context"
	"time"

	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/metrics"
)

// useCaseWithMetrics decorates UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// GetUsableCredential records metrics for credential retrieval operations.
func (u *useCaseWithMetrics) GetUsableCredential(ctx context.Context, identity string) (*credentialDomain.CredentialRecord, error) {
	start := time.Now()
	record, err := u.next.GetUsableCredential(ctx, identity)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "credential", "get_usable_credential", status)
	u.metrics.RecordDuration(ctx, "credential", "get_usable_credential", time.Since(start), status)

	return record, err
}

// StoreCredential records metrics for credential store operations.
func (u *useCaseWithMetrics) StoreCredential(ctx context.Context, identity string, record *credentialDomain.CredentialRecord) error {
	start := time.Now()
	err := u.next.StoreCredential(ctx, identity, record)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "credential", "store_credential", status)
	u.metrics.RecordDuration(ctx, "credential", "store_credential", time.Since(start), status)

	return err
}

// Revoke records metrics for credential revocation operations.
func (u *useCaseWithMetrics) Revoke(ctx context.Context, identity string) error {
	start := time.Now()
	err := u.next.Revoke(ctx, identity)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "credential", "revoke", status)
	u.metrics.RecordDuration(ctx, "credential", "revoke", time.Since(start), status)

	return err
}
