package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/JDIVE/google-workspace-remote-mcp/internal/app"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/config"
)

// RunMigrations executes database migrations for the SQL-backed store
// drivers. Returns nil if no migrations need to apply. The redis and memory
// drivers need no migrations.
func RunMigrations() error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	switch cfg.StoreDriver {
	case "postgres", "mysql":
	default:
		logger.Info("store driver requires no migrations", slog.String("driver", cfg.StoreDriver))
		return nil
	}

	logger.Info("running database migrations",
		slog.String("driver", cfg.StoreDriver),
	)

	migrationsPath := "file://migrations/postgresql"
	if cfg.StoreDriver == "mysql" {
		migrationsPath = "file://migrations/mysql"
	}

	m, err := migrate.New(migrationsPath, cfg.DBConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
