package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csrfDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/csrf/domain"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
)

func newTestStateManager(t *testing.T, maxIssuances int64) (*StateManager, *kvstore.MemoryStore) {
	t.Helper()

	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStateManager(store, 10*time.Minute, maxIssuances, logger), store
}

func TestStateManager_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_IssueReturnsURLSafeToken", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 10)

		token, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	})

	t.Run("Success_TokensAreUnique", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 10)

		first, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)

		second, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("Success_IssuanceLimitExhausted", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 3)

		for i := 0; i < 3; i++ {
			token, err := manager.Issue(ctx, "owner-1", "requester-a")
			require.NoError(t, err)
			require.NotEmpty(t, token)
		}

		token, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)
		assert.Empty(t, token, "issuance beyond the limit should be denied without error")
	})

	t.Run("Success_LimitIsPerRequester", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 1)

		token, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		token, err = manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)
		require.Empty(t, token)

		token, err = manager.Issue(ctx, "owner-1", "requester-b")
		require.NoError(t, err)
		assert.NotEmpty(t, token, "a different requester has its own issuance window")
	})
}

func TestStateManager_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ConsumeReturnsBoundOwner", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 10)

		token, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)

		owner, err := manager.Consume(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "owner-1", owner)
	})

	t.Run("Success_SecondConsumeIsDenied", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 10)

		token, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)

		owner, err := manager.Consume(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "owner-1", owner)

		owner, err = manager.Consume(ctx, token)
		require.NoError(t, err)
		assert.Empty(t, owner, "a state token is one-time use")
	})

	t.Run("Success_UnknownTokenIsDenied", func(t *testing.T) {
		manager, _ := newTestStateManager(t, 10)

		owner, err := manager.Consume(ctx, "never-issued")
		require.NoError(t, err)
		assert.Empty(t, owner)
	})

	t.Run("Success_ExpiredTokenIsDenied", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		manager := NewStateManager(store, time.Millisecond, 10, logger)

		token, err := manager.Issue(ctx, "owner-1", "requester-a")
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		owner, err := manager.Consume(ctx, token)
		require.NoError(t, err)
		assert.Empty(t, owner)
	})

	t.Run("Success_UnparseableEntryIsDroppedAndDenied", func(t *testing.T) {
		manager, store := newTestStateManager(t, 10)

		require.NoError(t, store.Set(ctx, "poisoned-token", []byte("not json"), time.Minute))

		owner, err := manager.Consume(ctx, "poisoned-token")
		require.NoError(t, err)
		assert.Empty(t, owner)

		// The entry must not survive the consumption attempt.
		_, err = store.Get(ctx, "poisoned-token")
		assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)
	})
}

func TestIssueCounterKey(t *testing.T) {
	assert.Equal(t, "csrf-issue:10.0.0.1", csrfDomain.IssueCounterKey("10.0.0.1"))
}
