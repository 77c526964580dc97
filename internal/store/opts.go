// Package store provides configuration options and DSN detection for
// choosing a storage backend.
package store

import (
	"log/slog"
	"strings"
)

// Opts holds store configuration.
type Opts struct {
	PostgresDSN string
	SQLiteDSN   string
}

// Option configures the store.
type Option func(*Opts)

// WithPostgresDSN configures a PostgreSQL backend.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.PostgresDSN = dsn }
}

// WithSQLiteDSN configures a SQLite backend with the given file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.SQLiteDSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Postgres DSNs
// use URL or key=value forms; anything else is treated as a SQLite path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// New builds a store from options: Postgres when a Postgres DSN is set,
// SQLite when a SQLite DSN is set, otherwise in-memory.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case cfg.PostgresDSN != "":
		slog.Debug("store.New: using PostgreSQL backend")
		return NewPostgresStore(opts...)
	case cfg.SQLiteDSN != "":
		slog.Debug("store.New: using SQLite backend", "path", cfg.SQLiteDSN)
		return NewSQLiteStore(opts...)
	default:
		slog.Debug("store.New: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
}
