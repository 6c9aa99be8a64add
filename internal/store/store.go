// Package store persists parsed documents in PostgreSQL or SQLite.
//
// Only the header and the verbatim cell text are stored. Column types are
// re-derived with efile.NewTable on load, so a stored document reads back
// exactly as it was parsed.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/efile/internal/core"
)

// Backend is a core.Store with a lifecycle.
type Backend interface {
	core.Store

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig sizes the PostgreSQL connection pool. Zero values keep the
// pgxpool defaults. SQLite ignores it.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the database named by rawURL. postgres:// and
// postgresql:// select PostgreSQL; sqlite://path and file: select SQLite.
func Open(ctx context.Context, rawURL string, pc PoolConfig) (Backend, error) {
	switch {
	case hasScheme(rawURL, "postgres", "postgresql"):
		return ConnectPostgres(ctx, rawURL, pc)

	case hasScheme(rawURL, "sqlite"):
		path := strings.TrimPrefix(strings.TrimPrefix(rawURL, "sqlite:"), "//")
		return OpenSQLite(ctx, path)

	case hasScheme(rawURL, "file"):
		return OpenSQLite(ctx, rawURL)
	}
	return nil, fmt.Errorf("unsupported database URL %q", redact(rawURL))
}

func hasScheme(rawURL string, schemes ...string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(strings.ToLower(rawURL), s+":") {
			return true
		}
	}
	return false
}

// redact hides credentials in rawURL for error messages.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	return u.Redacted()
}
