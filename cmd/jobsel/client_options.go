package main

import (
	"log/slog"
	"strings"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/internal/config"
)

// clientOptions returns the jobsel.Option slice derived from AppConfig.
// Callers append entrypoint-specific options before passing the slice to
// jobsel.New.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) []jobsel.Option {
	opts := storageOptions(cfg)
	return append(opts,
		jobsel.WithLogger(logger),
		jobsel.WithQueryOthers(cfg.QueryOthers()),
		jobsel.WithMaxResults(cfg.MaxResults()),
	)
}

// storageOptions returns the jobsel.Option for the configured database backend.
func storageOptions(cfg config.AppConfig) []jobsel.Option {
	dbURL := cfg.DBURL()

	if dbURL != "" && !isSQLite(dbURL) {
		return []jobsel.Option{jobsel.WithPostgres(dbURL)}
	}

	dbPath := cfg.DataDir() + "/" + config.DefaultDBFile
	if dbURL != "" {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:///")
		if dbPath == dbURL {
			dbPath = strings.TrimPrefix(dbURL, "sqlite:")
		}
	}

	return []jobsel.Option{jobsel.WithSQLite(dbPath)}
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
