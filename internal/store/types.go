package store

import "time"

// Backend names accepted in StoreConfig.Backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultPendingTTL is used when the service does not report an expiry for a
// request. Requests outlive the client-side poll timeout so they can be resumed.
const DefaultPendingTTL = 10 * time.Minute

// StoreConfig configures the store layer.
type StoreConfig struct {
	// Backend: "file" (default), "sqlite", "postgres", or "redis".
	Backend string

	// FilePath is the JSON file used by the file backend (e.g. ~/.msgauth/pending.json).
	FilePath string

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string

	// PostgresDSN is the connection string used by the postgres backend.
	PostgresDSN string

	// RedisURL is a redis:// URL used by the redis backend.
	RedisURL string

	// KeyPrefix namespaces keys in shared backends (redis). Default "msgauth:".
	KeyPrefix string
}

// ResolvedBackend returns the backend name with the default applied.
func (c StoreConfig) ResolvedBackend() string {
	if c.Backend == "" {
		return BackendFile
	}
	return c.Backend
}
