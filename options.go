package jobsel

import (
	"log/slog"

	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/internal/config"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
	databaseURL
)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	database    databaseType
	dbPath      string
	dbDSN       string
	logger      *slog.Logger
	queryOthers bool
	maxResults  int
	authorizer  service.Authorizer
	recorder    service.Recorder
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		maxResults: config.DefaultMaxResults,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite stores the job table in the SQLite file at path. Use
// ":memory:" for a throwaway table.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres stores the job table in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithDatabaseURL uses a sqlite:/// or postgres:// URL as configured by
// DB_URL.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.database = databaseURL
		c.dbDSN = url
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithQueryOthers lets every requester see every job.
func WithQueryOthers(enabled bool) Option {
	return func(c *clientConfig) {
		c.queryOthers = enabled
	}
}

// WithMaxResults caps the jobs returned by one query. Values <= 0 remove
// the cap.
func WithMaxResults(n int) Option {
	return func(c *clientConfig) {
		c.maxResults = n
	}
}

// WithAuthorizer replaces the owner-based visibility check.
func WithAuthorizer(a service.Authorizer) Option {
	return func(c *clientConfig) {
		c.authorizer = a
	}
}

// WithRecorder sets the query observer, typically a metrics recorder.
func WithRecorder(r service.Recorder) Option {
	return func(c *clientConfig) {
		c.recorder = r
	}
}

func buildDatabaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		return "sqlite:///" + cfg.dbPath, nil
	case databasePostgres, databaseURL:
		return cfg.dbDSN, nil
	default:
		return "", ErrNoDatabase
	}
}
