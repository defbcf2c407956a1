package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// PostgreSQLStore is a Store implementation backed by a single
// kv_entries(key, value, expires_at) table. Expired rows are treated as
// absent on read and removed by DeleteExpired (see the clean-expired command).
type PostgreSQLStore struct {
	db *sql.DB
}

// Compile-time interface checks.
var (
	_ Store   = (*PostgreSQLStore)(nil)
	_ Sweeper = (*PostgreSQLStore)(nil)
)

// NewPostgreSQLStore creates a PostgreSQL-backed store.
func NewPostgreSQLStore(db *sql.DB) *PostgreSQLStore {
	return &PostgreSQLStore{db: db}
}

// Get returns the value stored under key or ErrKeyNotFound.
func (p *PostgreSQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Set stores value under key, overwriting any previous value.
func (p *PostgreSQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `INSERT INTO kv_entries (key, value, expires_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	if _, err := p.db.ExecContext(ctx, query, key, value, nullableExpiry(ttl)); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete removes the key. Missing keys are ignored.
func (p *PostgreSQLStore) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Increment atomically increments the counter stored under key.
// The upsert resets the counter when the previous window expired and keeps
// the original expiration otherwise, so the window stays fixed.
func (p *PostgreSQLStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	query := `INSERT INTO kv_entries (key, value, expires_at)
			  VALUES ($1, convert_to('1', 'UTF8'), $2)
			  ON CONFLICT (key) DO UPDATE SET
				  value = CASE
					  WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= NOW()
						  THEN convert_to('1', 'UTF8')
					  ELSE convert_to((convert_from(kv_entries.value, 'UTF8')::bigint + 1)::text, 'UTF8')
				  END,
				  expires_at = CASE
					  WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= NOW()
						  THEN EXCLUDED.expires_at
					  ELSE kv_entries.expires_at
				  END
			  RETURNING convert_from(value, 'UTF8')`

	var raw string
	if err := p.db.QueryRowContext(ctx, query, key, nullableExpiry(ttl)).Scan(&raw); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidCounter
	}
	return count, nil
}

// SetNX stores value under key only if the key is absent or expired.
func (p *PostgreSQLStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	query := `INSERT INTO kv_entries (key, value, expires_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
			  WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= NOW()`

	result, err := p.db.ExecContext(ctx, query, key, value, nullableExpiry(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to setnx key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// DeleteIfEqual removes the key only if its current value matches.
func (p *PostgreSQLStore) DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1 AND value = $2`, key, value)
	if err != nil {
		return false, fmt.Errorf("failed to conditionally delete key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// Keys returns all live keys with the given prefix.
func (p *PostgreSQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT key FROM kv_entries
			  WHERE key LIKE $1 || '%' AND (expires_at IS NULL OR expires_at > NOW())`

	rows, err := p.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

// DeleteExpired removes entries whose TTL has elapsed.
func (p *PostgreSQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

// Close closes the underlying database handle.
func (p *PostgreSQLStore) Close() error {
	return p.db.Close()
}
