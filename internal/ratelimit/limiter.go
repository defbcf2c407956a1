// Package ratelimit implements per-identity fixed-window request accounting
// on the shared key-value store.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	apperrors "github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
)

// CounterPrefix namespaces rate counters on the shared store.
const CounterPrefix = "rate:"

// CounterKey returns the rate counter key for an identity.
func CounterKey(identity string) string {
	return CounterPrefix + identity
}

// Limiter bounds request volume per identity inside a fixed window.
//
// Denial is an expected, frequent outcome, so Allow reports it as a boolean
// rather than an error. A counter already at the limit is denied without
// incrementing, so denied traffic cannot extend the window or inflate the
// count. Two concurrent requests may both observe the pre-increment count;
// the window bound is max plus the number of in-flight racers, which is an
// accepted property of the design, not a defect.
type Limiter struct {
	store  kvstore.Store
	max    int64
	window time.Duration
	logger *slog.Logger
}

// NewLimiter creates a rate limiter allowing max requests per window.
func NewLimiter(store kvstore.Store, max int64, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		max:    max,
		window: window,
		logger: logger,
	}
}

// Allow records a request for identity and reports whether it is within the
// window limit.
func (l *Limiter) Allow(ctx context.Context, identity string) (bool, error) {
	count, err := l.count(ctx, identity)
	if err != nil {
		return false, err
	}
	if count >= l.max {
		l.logger.Debug("rate limit exceeded",
			slog.String("identity", truncateIdentity(identity)),
			slog.Int64("count", count))
		return false, nil
	}

	if _, err := l.store.Increment(ctx, CounterKey(identity), l.window); err != nil {
		return false, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	return true, nil
}

// Remaining returns how many requests identity may still make in the current
// window, floored at zero.
func (l *Limiter) Remaining(ctx context.Context, identity string) (int64, error) {
	count, err := l.count(ctx, identity)
	if err != nil {
		return 0, err
	}
	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset unconditionally clears the counter for identity.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	if err := l.store.Delete(ctx, CounterKey(identity)); err != nil {
		return fmt.Errorf("failed to reset rate counter: %w", err)
	}
	return nil
}

// count reads the current window counter, treating a missing or unparseable
// entry as zero.
func (l *Limiter) count(ctx context.Context, identity string) (int64, error) {
	value, err := l.store.Get(ctx, CounterKey(identity))
	if err != nil {
		if apperrors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read rate counter: %w", err)
	}

	count, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, nil
	}
	return count, nil
}

func truncateIdentity(identity string) string {
	if len(identity) <= 8 {
		return identity
	}
	return identity[:8] + "..."
}
