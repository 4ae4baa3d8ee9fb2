package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

const keyNamespace = "cardfeed"

var (
	// ErrCacheDisabled is returned when cache operations are attempted but cache is disabled
	ErrCacheDisabled = fmt.Errorf("cache is disabled")
)

// envelope is what a redis value holds; expiry is checked on read as well as
// enforced by the key TTL.
type envelope struct {
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Response  json.RawMessage `json:"response"`
}

// RedisStore keeps provider responses in Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store. It returns nil, nil when
// Redis is not configured.
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Redis cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &RedisStore{client: client}, nil
}

// Get returns the payload for (provider, query) when present and not expired at now
func (s *RedisStore) Get(ctx context.Context, provider, query string, now time.Time) ([]byte, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, ErrCacheDisabled
	}

	raw, err := s.client.Get(ctx, s.entryKey(provider, query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	if now.After(env.ExpiresAt) {
		return nil, false, nil
	}
	return env.Response, true, nil
}

// Put stores payload until expiresAt
func (s *RedisStore) Put(ctx context.Context, provider, query string, payload []byte, cachedAt, expiresAt time.Time) error {
	if s == nil || s.client == nil {
		return ErrCacheDisabled
	}

	ttl := expiresAt.Sub(cachedAt)
	if ttl <= 0 {
		return nil
	}

	value, err := json.Marshal(envelope{CachedAt: cachedAt, ExpiresAt: expiresAt, Response: payload})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return s.client.Set(ctx, s.entryKey(provider, query), value, ttl).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Health checks Redis health
func (s *RedisStore) Health(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrCacheDisabled
	}
	return s.client.Ping(ctx).Err()
}

// entryKey keeps the provider readable and hashes the query, which may be
// long free text.
func (s *RedisStore) entryKey(provider, query string) string {
	return s.namespaceKey("api:" + provider + ":" + HashKey(query))
}

func (s *RedisStore) namespaceKey(key string) string {
	return keyNamespace + ":" + key
}

// HashKey joins parts and returns their MD5 hex digest
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
