// Package ratelimit implements the Rate Limiter (M): an in-memory sliding
// window and a Redis-backed fixed window, selected at startup by probing
// Redis and falling back to the in-memory implementation on any failure.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter admits or rejects a request for client_id.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

const window = 60 * time.Second

// InMemoryLimiter is a per-client_id sliding window over a 60s interval,
// backed by a deque of event timestamps.
type InMemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	events map[string][]time.Time
	nowFn  func() time.Time
}

// NewInMemoryLimiter builds a sliding-window limiter admitting up to limit
// requests per 60s window.
func NewInMemoryLimiter(limit int) *InMemoryLimiter {
	return &InMemoryLimiter{
		limit:  limit,
		events: map[string][]time.Time{},
		nowFn:  time.Now,
	}
}

// Allow admits the request if fewer than limit events remain in the
// trailing 60s window for clientID. Only admitted attempts are recorded.
func (l *InMemoryLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	cutoff := now.Add(-window)

	events := l.events[clientID]
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.events[clientID] = kept
		return false, nil
	}

	l.events[clientID] = append(kept, now)
	return true, nil
}

// RedisLimiter is a fixed-window counter keyed on prefix:client_id:minute.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
}

// NewRedisLimiter builds a fixed-window limiter backed by client.
func NewRedisLimiter(client *redis.Client, prefix string, limit int) *RedisLimiter {
	if prefix == "" {
		prefix = "immcad:ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit}
}

// Allow increments the counter for the current 60s bucket and admits the
// request if the post-increment value is within limit. The key is given a
// 65s expiry on its first hit in a bucket so abandoned keys self-clean.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	bucket := time.Now().Unix() / 60
	key := fmt.Sprintf("%s:%s:%d", l.prefix, clientID, bucket)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		l.client.Expire(ctx, key, 65*time.Second)
	}

	return count <= int64(l.limit), nil
}

// BuildLimiter attempts a Redis-backed limiter when redisURL is non-empty
// and the server responds to PING; on any failure it logs a warning and
// falls back to an in-memory limiter.
func BuildLimiter(redisURL, keyPrefix string, limit int, logger *slog.Logger) Limiter {
	if redisURL == "" {
		return NewInMemoryLimiter(limit)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid redis url for rate limiter, falling back to in-memory", "error", err)
		}
		return NewInMemoryLimiter(limit)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warn("redis ping failed for rate limiter, falling back to in-memory", "error", err)
		}
		client.Close()
		return NewInMemoryLimiter(limit)
	}

	return NewRedisLimiter(client, keyPrefix, limit)
}
