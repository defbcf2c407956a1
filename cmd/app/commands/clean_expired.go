package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/app"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/config"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/kvstore"
)

// RunCleanExpired removes expired entries from the SQL-backed stores.
//
// The redis and memory drivers expire keys on their own; for them this
// command is a no-op. Intended to run periodically (cron) when STORE_DRIVER
// is postgres or mysql.
func RunCleanExpired(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()

	defer closeContainer(container, logger)

	store, err := container.KVStore()
	if err != nil {
		return fmt.Errorf("failed to initialize kv store: %w", err)
	}

	sweeper, ok := store.(kvstore.Sweeper)
	if !ok {
		logger.Info("store driver expires entries automatically, nothing to clean",
			slog.String("driver", cfg.StoreDriver))
		return nil
	}

	count, err := sweeper.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired entries: %w", err)
	}

	logger.Info("expired entries removed", slog.Int64("count", count))
	return nil
}
