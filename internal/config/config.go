// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixml/jobsel/domain/attribute"
)

// Default configuration values.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8080
	DefaultLogLevel   = "INFO"
	DefaultMaxResults = 100000
	DefaultDBFile     = "jobsel.db"
	DefaultPerm       = "user"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
	// LogFormatText is the pretty layout without colour codes.
	LogFormatText LogFormat = "text"
)

// AppConfig holds the main application configuration.
type AppConfig struct {
	host          string
	port          int
	dataDir       string
	dbURL         string
	logLevel      string
	logFormat     LogFormat
	apiKeys       []string
	queryOthers   bool
	maxResults    int
	requesterPerm attribute.Perm
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jobsel"
	}
	return filepath.Join(home, ".jobsel")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:          DefaultHost,
		port:          DefaultPort,
		dataDir:       dataDir,
		dbURL:         "sqlite:///" + filepath.Join(dataDir, DefaultDBFile),
		logLevel:      DefaultLogLevel,
		logFormat:     LogFormatPretty,
		apiKeys:       []string{},
		maxResults:    DefaultMaxResults,
		requesterPerm: attribute.PermUser,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// QueryOthers reports whether every requester may see every job.
func (c AppConfig) QueryOthers() bool { return c.queryOthers }

// MaxResults returns the cap on jobs returned by one query.
func (c AppConfig) MaxResults() int { return c.maxResults }

// RequesterPerm returns the permission mask given to HTTP requesters.
func (c AppConfig) RequesterPerm() attribute.Perm { return c.requesterPerm }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || strings.HasSuffix(c.dbURL, DefaultDBFile) {
			c.dbURL = "sqlite:///" + filepath.Join(dir, DefaultDBFile)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithQueryOthers disables the job owner visibility check.
func WithQueryOthers(enabled bool) AppConfigOption {
	return func(c *AppConfig) { c.queryOthers = enabled }
}

// WithMaxResults sets the per-query result cap. Values <= 0 are ignored.
func WithMaxResults(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithRequesterPerm sets the permission mask given to HTTP requesters.
func WithRequesterPerm(p attribute.Perm) AppConfigOption {
	return func(c *AppConfig) { c.requesterPerm = p }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Bool("query_others", c.queryOthers),
		slog.Int("max_results", c.maxResults),
		slog.String("requester_perm", c.requesterPerm.String()),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
