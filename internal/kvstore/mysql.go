package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MySQLStore is a Store implementation backed by the kv_entries table.
//
// MySQL lacks PostgreSQL's conditional upsert expressiveness, so the
// compound operations (Increment, SetNX) run inside short transactions with
// SELECT ... FOR UPDATE to stay atomic under concurrent callers.
type MySQLStore struct {
	db *sql.DB
}

// Compile-time interface checks.
var (
	_ Store   = (*MySQLStore)(nil)
	_ Sweeper = (*MySQLStore)(nil)
)

// NewMySQLStore creates a MySQL-backed store.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Get returns the value stored under key or ErrKeyNotFound.
func (m *MySQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := "SELECT value FROM kv_entries WHERE `key` = ? AND (expires_at IS NULL OR expires_at > NOW(6))"

	var value []byte
	err := m.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Set stores value under key, overwriting any previous value.
func (m *MySQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := "INSERT INTO kv_entries (`key`, value, expires_at) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)"

	if _, err := m.db.ExecContext(ctx, query, key, value, nullableExpiry(ttl)); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete removes the key. Missing keys are ignored.
func (m *MySQLStore) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE `key` = ?", key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Increment atomically increments the counter stored under key.
func (m *MySQLStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		raw     []byte
		expiry  sql.NullTime
		current int64
	)
	query := "SELECT value, expires_at FROM kv_entries WHERE `key` = ? FOR UPDATE"
	err = tx.QueryRowContext(ctx, query, key).Scan(&raw, &expiry)

	now := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows), err == nil && expiry.Valid && !expiry.Time.After(now):
		// No live counter: start a fresh window.
		current = 1
		upsert := "INSERT INTO kv_entries (`key`, value, expires_at) VALUES (?, '1', ?) " +
			"ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)"
		if _, err := tx.ExecContext(ctx, upsert, key, nullableExpiry(ttl)); err != nil {
			return 0, fmt.Errorf("failed to create counter: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to read counter: %w", err)
	default:
		current, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, ErrInvalidCounter
		}
		current++
		update := "UPDATE kv_entries SET value = ? WHERE `key` = ?"
		if _, err := tx.ExecContext(ctx, update, strconv.FormatInt(current, 10), key); err != nil {
			return 0, fmt.Errorf("failed to update counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit counter increment: %w", err)
	}
	return current, nil
}

// SetNX stores value under key only if the key is absent or expired.
func (m *MySQLStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		existing []byte
		expiry   sql.NullTime
	)
	query := "SELECT value, expires_at FROM kv_entries WHERE `key` = ? FOR UPDATE"
	err = tx.QueryRowContext(ctx, query, key).Scan(&existing, &expiry)

	now := time.Now().UTC()
	if err == nil && (!expiry.Valid || expiry.Time.After(now)) {
		// A live value already exists.
		return false, tx.Commit()
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to read key: %w", err)
	}

	upsert := "INSERT INTO kv_entries (`key`, value, expires_at) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)"
	if _, err := tx.ExecContext(ctx, upsert, key, value, nullableExpiry(ttl)); err != nil {
		return false, fmt.Errorf("failed to setnx key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit setnx: %w", err)
	}
	return true, nil
}

// DeleteIfEqual removes the key only if its current value matches.
func (m *MySQLStore) DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error) {
	result, err := m.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE `key` = ? AND value = ?", key, value)
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
func (m *MySQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := "SELECT `key` FROM kv_entries WHERE `key` LIKE CONCAT(?, '%') AND (expires_at IS NULL OR expires_at > NOW(6))"

	rows, err := m.db.QueryContext(ctx, query, prefix)
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
func (m *MySQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := m.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= NOW(6)")
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
func (m *MySQLStore) Close() error {
	return m.db.Close()
}

// nullableExpiry converts a ttl into a nullable absolute timestamp.
func nullableExpiry(ttl time.Duration) sql.NullTime {
	if ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Now().UTC().Add(ttl), Valid: true}
}
