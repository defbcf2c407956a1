package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedOperation captures a single metrics call.
type recordedOperation struct {
	domain    string
	operation string
	status    string
}

// recordingMetrics is a BusinessMetrics capture for assertions.
type recordingMetrics struct {
	operations []recordedOperation
	durations  []recordedOperation
}

func (r *recordingMetrics) RecordOperation(_ context.Context, domain, operation, status string) {
	r.operations = append(r.operations, recordedOperation{domain, operation, status})
}

func (r *recordingMetrics) RecordDuration(_ context.Context, domain, operation string, _ time.Duration, status string) {
	r.durations = append(r.durations, recordedOperation{domain, operation, status})
}

func TestIssuerWithMetrics(t *testing.T) {
	t.Run("Success_RecordsMintAndVerify", func(t *testing.T) {
		captured := &recordingMetrics{}
		issuer := NewIssuerWithMetrics(newTestIssuer(t, 30*time.Second, time.Now()), captured)

		token, err := issuer.Mint("user-a", 3600)
		require.NoError(t, err)

		subject, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-a", subject)

		require.Len(t, captured.operations, 2)
		assert.Equal(t, recordedOperation{"session", "mint", "success"}, captured.operations[0])
		assert.Equal(t, recordedOperation{"session", "verify", "success"}, captured.operations[1])
		require.Len(t, captured.durations, 2)
	})

	t.Run("Success_RecordsErrorStatus", func(t *testing.T) {
		captured := &recordingMetrics{}
		issuer := NewIssuerWithMetrics(newTestIssuer(t, 30*time.Second, time.Now()), captured)

		_, err := issuer.Verify("not-a-token")
		require.Error(t, err)

		require.Len(t, captured.operations, 1)
		assert.Equal(t, recordedOperation{"session", "verify", "error"}, captured.operations[0])
	})
}
