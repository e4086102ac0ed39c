package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string

	// Username and Password authenticate the connection (optional).
	Username string
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix is prepended to every page key.
	// Default: "flatten:"
	KeyPrefix string

	// ScanCount is the COUNT hint used when enumerating keys.
	// Default: 100
	ScanCount int64
}

// RedisStore keeps pages in Redis without expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	count  int64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("cache: redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "flatten:"
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 100
	}
	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
		count:  cfg.ScanCount,
	}
}

// Get retrieves a page. Redis errors are reported as misses.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, ok, _ := s.lookup(ctx, key)
	return val, ok
}

// lookup is Get that reports failures other than a missing key.
func (s *RedisStore) lookup(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return val, true, nil
}

// SetForever stores a page with no TTL.
func (s *RedisStore) SetForever(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete removes a page. Idempotent - no error on miss.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}

// DeleteMatching scans the namespace for keys containing substr and deletes
// them one by one, counting only successful deletions.
func (s *RedisStore) DeleteMatching(ctx context.Context, namespace, substr string) (int, error) {
	base := s.prefix + namespacePrefix(namespace)
	match := escapeGlob(base) + "*" + escapeGlob(substr) + "*"

	deleted := 0
	iter := s.client.Scan(ctx, 0, match, s.count).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		if !matchesInNamespace(strings.TrimPrefix(full, s.prefix), namespace, substr) {
			continue
		}
		n, err := s.client.Del(ctx, full).Result()
		if err == nil && n > 0 {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache: redis scan: %w", err)
	}
	return deleted, nil
}

// Clear deletes every key under the namespace.
func (s *RedisStore) Clear(ctx context.Context, namespace string) error {
	match := escapeGlob(s.prefix+namespacePrefix(namespace)) + "*"

	var errs []error
	iter := s.client.Scan(ctx, 0, match, s.count).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := iter.Err(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("cache: redis clear: %w", errors.Join(errs...))
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// escapeGlob escapes the characters Redis MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
