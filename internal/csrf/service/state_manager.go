// Package service implements one-time anti-forgery state tokens for the
// authorization redirect flow.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	csrfDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/csrf/domain"
	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
)

// stateTokenBytes is the entropy of a state token before encoding.
const stateTokenBytes = 32

// StateManager issues and consumes one-time state tokens.
//
// Denial is an expected outcome on both paths, so Issue and Consume signal it
// with an empty token / empty owner instead of an error. The caller cannot
// distinguish "never issued", "already consumed" and "expired" on consume;
// collapsing them closes the replay oracle.
type StateManager struct {
	store        kvstore.Store
	ttl          time.Duration
	maxIssuances int64
	logger       *slog.Logger
}

// NewStateManager creates a state manager. ttl bounds both the token entries
// and the per-requester issuance window.
func NewStateManager(store kvstore.Store, ttl time.Duration, maxIssuances int64, logger *slog.Logger) *StateManager {
	return &StateManager{
		store:        store,
		ttl:          ttl,
		maxIssuances: maxIssuances,
		logger:       logger,
	}
}

// Issue creates a state token bound to ownerID, throttled per requester.
// Returns ("", nil) when the requester exhausted the issuance window.
func (m *StateManager) Issue(ctx context.Context, ownerID, requesterIdentity string) (string, error) {
	count, err := m.store.Increment(ctx, csrfDomain.IssueCounterKey(requesterIdentity), m.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to count state issuance: %w", err)
	}
	if count > m.maxIssuances {
		m.logger.Warn("state issuance limit exceeded",
			slog.String("requester", truncateToken(requesterIdentity)),
			slog.Int64("count", count))
		return "", nil
	}

	token, err := generateStateToken()
	if err != nil {
		return "", err
	}

	value, err := json.Marshal(csrfDomain.StateEntry{OwnerID: ownerID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal state entry: %w", err)
	}

	if err := m.store.Set(ctx, token, value, m.ttl); err != nil {
		return "", fmt.Errorf("failed to persist state entry: %w", err)
	}

	m.logger.Debug("state token issued", slog.String("token", truncateToken(token)))
	return token, nil
}

// Consume validates a state token and removes it, returning the bound owner.
// Returns ("", nil) for any token that cannot be consumed.
func (m *StateManager) Consume(ctx context.Context, token string) (string, error) {
	value, err := m.store.Get(ctx, token)
	if err != nil {
		if apperrors.Is(err, kvstore.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read state entry: %w", err)
	}

	// Delete before trusting the payload: even an unparseable entry must
	// not survive a consumption attempt.
	if err := m.store.Delete(ctx, token); err != nil {
		return "", fmt.Errorf("failed to delete state entry: %w", err)
	}

	var entry csrfDomain.StateEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		m.logger.Warn("unparseable state entry dropped", slog.String("token", truncateToken(token)))
		return "", nil
	}

	m.logger.Debug("state token consumed", slog.String("token", truncateToken(token)))
	return entry.OwnerID, nil
}

// generateStateToken returns a URL-safe random token.
func generateStateToken() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// truncateToken shortens a token or identifier for diagnostics.
func truncateToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
