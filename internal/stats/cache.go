package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache is a best-effort key-value cache with a fixed TTL. Misses and backend
// errors look the same to callers.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	// InvalidatePrefix drops every entry whose key starts with prefix
	InvalidatePrefix(ctx context.Context, prefix string)
}

// LRUCache is a process-local bounded cache with per-entry expiry
type LRUCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewLRUCache creates a cache holding at most size entries for ttl each
func NewLRUCache[V any](size int, ttl time.Duration) *LRUCache[V] {
	if size <= 0 {
		size = 1024
	}
	return &LRUCache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (c *LRUCache[V]) Get(ctx context.Context, key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache[V]) Set(ctx context.Context, key string, value V) {
	c.lru.Add(key, value)
}

func (c *LRUCache[V]) InvalidatePrefix(ctx context.Context, prefix string) {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

// RedisCache shares cached values between processes as JSON under a key namespace
type RedisCache[V any] struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisCache creates a Redis-backed cache. Keys are stored as namespace+key.
func NewRedisCache[V any](client redis.UniversalClient, namespace string, ttl time.Duration) *RedisCache[V] {
	return &RedisCache[V]{client: client, namespace: namespace, ttl: ttl}
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	raw, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("stats cache read failed", "key", key, "error", err)
		}
		return zero, false
	}

	var value V
	if err := json.Unmarshal(raw, &value); err != nil {
		slog.Warn("stats cache entry corrupt", "key", key, "error", err)
		return zero, false
	}
	return value, true
}

func (c *RedisCache[V]) Set(ctx context.Context, key string, value V) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("stats cache encode failed", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, c.namespace+key, raw, c.ttl).Err(); err != nil {
		slog.Warn("stats cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache[V]) InvalidatePrefix(ctx context.Context, prefix string) {
	pattern := c.namespace + escapeGlob(prefix) + "*"
	var cursor uint64

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("stats cache scan failed", "prefix", prefix, "error", err)
			return
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("stats cache delete failed", "prefix", prefix, "error", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return
		}
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// NoopCache never stores anything
type NoopCache[V any] struct{}

func (NoopCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	return zero, false
}

func (NoopCache[V]) Set(ctx context.Context, key string, value V) {}

func (NoopCache[V]) InvalidatePrefix(ctx context.Context, prefix string) {}
