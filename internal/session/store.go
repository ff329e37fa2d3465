// Package session holds per-address conversation state in an expiring,
// field-mapped key-value store.
//
// The Store interface mirrors the hash primitives of a Redis-like backend
// (get all fields, set some fields, delete, expire). Three implementations
// are provided:
//   - RedisStore: production backend on github.com/redis/go-redis/v9
//   - SQLStore:   relational fallback reusing the ledger's GORM handle
//   - MemoryStore: process-local map used by tests and local development
//
// Sessions adapts a Store into typed domain.Session values.
package session

import (
	"context"
	"time"
)

// Store is keyed, field-mapped, expiring storage.
//
// Get returns an empty (non-nil) map when the key is absent or expired.
// SetFields merges the given fields into the existing map. Expire sets the
// remaining lifetime of the key; it is a no-op for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (map[string]string, error)
	SetFields(ctx context.Context, key string, fields map[string]string) error
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
