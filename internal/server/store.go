package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sakif/bounty-portal/internal/config"
	"github.com/sakif/bounty-portal/internal/repository"
	pgRepo "github.com/sakif/bounty-portal/internal/repository/postgres"
	sqliteRepo "github.com/sakif/bounty-portal/internal/repository/sqlite"
)

// OpenStore opens the backend named by cfg.DBDriver and applies its schema.
// The caller owns the returned store and must Close it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := pgRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres at %s: %w", redactURL(cfg.DatabaseURL), err)
		}
		logger.Info("connected to database",
			slog.String("driver", cfg.DBDriver),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return db, nil

	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// mkdir -p for the database file's directory.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite at %s: %w", cfg.DBPath, err)
		}
		logger.Info("connected to database",
			slog.String("driver", cfg.DBDriver),
			slog.String("path", cfg.DBPath),
		)
		return db, nil
	}

	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// redactURL hides the password of a connection URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
