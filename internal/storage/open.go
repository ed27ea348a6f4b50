package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/babytrack/internal/config"
)

// Open connects the KV backend selected by cfg. For postgres, pending
// migrations from migrationsPath are applied first. The returned func
// releases the backend.
func Open(ctx context.Context, cfg config.StorageConfig, migrationsPath string, log *slog.Logger) (KV, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn, migrationsPath); err != nil {
			return nil, nil, err
		}
		log.Info("migrations applied")

		db, err := New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connected", "driver", cfg.Driver, "host", cfg.Postgres.Host)
		return db, db.Close, nil

	case config.DriverSQLite, "":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database opened", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return db, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
