package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores each session as a Redis hash.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedis parses a redis:// URL and returns a connected store.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisStore(client), nil
}

// Get implements Store with HGETALL.
func (s *RedisStore) Get(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// SetFields implements Store with HSET.
func (s *RedisStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	vals := make(map[string]any, len(fields))
	for k, v := range fields {
		vals[k] = v
	}
	return s.client.HSet(ctx, key, vals).Err()
}

// Delete implements Store with DEL.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Expire implements Store with EXPIRE.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

// SetFieldsWithTTL writes fields and re-arms the expiry in one MULTI/EXEC so
// a crash between the two commands cannot leave a hash without a TTL.
func (s *RedisStore) SetFieldsWithTTL(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	vals := make(map[string]any, len(fields))
	for k, v := range fields {
		vals[k] = v
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(vals) > 0 {
			pipe.HSet(ctx, key, vals)
		}
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
