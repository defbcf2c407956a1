package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/app"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/config"
	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
)

// RunRotateCredentialKeys sweeps all stored credential records and re-encrypts
// the ones still sealed under the previous key.
//
// The passive rotation path only rotates records that are actually read; this
// sweep finishes the job so the previous key can be retired from the
// configuration. Per-record failures are logged and counted but do not abort
// the sweep, mirroring the best-effort contract of the passive path.
func RunRotateCredentialKeys(ctx context.Context, concurrency int) error {
	if concurrency < 1 {
		return fmt.Errorf("concurrency must be a positive number, got: %d", concurrency)
	}

	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting credential key rotation sweep",
		slog.Int("concurrency", concurrency),
	)

	defer closeContainer(container, logger)

	store, err := container.KVStore()
	if err != nil {
		return fmt.Errorf("failed to initialize kv store: %w", err)
	}

	engine, err := container.CryptoEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize crypto engine: %w", err)
	}

	rotator, err := container.Rotator()
	if err != nil {
		return fmt.Errorf("failed to initialize rotator: %w", err)
	}

	keys, err := store.Keys(ctx, credentialDomain.TokenKeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to list credential keys: %w", err)
	}

	var rotated, skipped, failed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for _, key := range keys {
		group.Go(func() error {
			identity := credentialDomain.IdentityFromTokenKey(key)

			value, err := store.Get(groupCtx, key)
			if err != nil {
				// The record may have expired between listing and reading.
				skipped.Add(1)
				return nil
			}

			record, err := cryptoDomain.UnmarshalEncryptedRecord(value)
			if err != nil {
				failed.Add(1)
				logger.Warn("skipping unparseable credential record", slog.Any("error", err))
				return nil
			}

			if record.Version == engine.CurrentVersion() {
				skipped.Add(1)
				return nil
			}

			plaintext, _, err := engine.Decrypt(record)
			if err != nil {
				failed.Add(1)
				logger.Warn("skipping undecryptable credential record",
					slog.Int("stored_version", record.Version))
				return nil
			}
			defer cryptoDomain.Zero(plaintext)

			if err := rotator.Rotate(groupCtx, identity, plaintext, record.Version); err != nil {
				failed.Add(1)
				logger.Warn("failed to rotate credential record", slog.Any("error", err))
				return nil
			}

			rotated.Add(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("rotation sweep aborted: %w", err)
	}

	logger.Info("credential key rotation sweep completed",
		slog.Int64("rotated", rotated.Load()),
		slog.Int64("skipped", skipped.Load()),
		slog.Int64("failed", failed.Load()),
	)

	if failed.Load() > 0 {
		return fmt.Errorf("rotation sweep finished with %d failed records", failed.Load())
	}

	return nil
}
