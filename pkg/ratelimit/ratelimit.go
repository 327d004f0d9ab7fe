// Package ratelimit throttles mutating workflow calls per organization
// and endpoint. The primary counter lives in Redis so the limit holds
// across instances; when Redis is unreachable the check falls back to
// an in-process token bucket instead of blocking traffic on an
// auxiliary outage.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter is the collaborator contract the workflows consult before a
// mutating operation. retryAfter is meaningful only when allowed is
// false.
type Limiter interface {
	CheckLimit(ctx context.Context, orgID int64, endpoint string) (allowed bool, retryAfter time.Duration)
}

// Counter is the slice of Redis the limiter needs; tests substitute a
// fake.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

func (c *RedisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}

func (c *RedisCounter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.TTL(ctx, key).Result()
}

type OrgLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

func NewOrgLimiter(counter Counter, limit int, window time.Duration, logger *zap.Logger) *OrgLimiter {
	return &OrgLimiter{
		counter:  counter,
		limit:    limit,
		window:   window,
		logger:   logger,
		fallback: make(map[string]*rate.Limiter),
	}
}

func (l *OrgLimiter) CheckLimit(ctx context.Context, orgID int64, endpoint string) (bool, time.Duration) {
	key := fmt.Sprintf("ratelimit:%d:%s", orgID, endpoint)

	n, err := l.counter.Incr(ctx, key)
	if err != nil {
		// Limiter outage must not block legitimate traffic; the local
		// bucket keeps a per-instance ceiling while Redis is down.
		l.logger.Warn("rate limiter unreachable, using local fallback",
			zap.String("key", key), zap.Error(err))
		if l.local(key).Allow() {
			return true, 0
		}
		return false, l.window
	}

	if n == 1 {
		if err := l.counter.Expire(ctx, key, l.window); err != nil {
			l.logger.Warn("failed to set rate limit window", zap.String("key", key), zap.Error(err))
		}
	}

	if n > int64(l.limit) {
		retryAfter, err := l.counter.TTL(ctx, key)
		if err != nil || retryAfter <= 0 {
			retryAfter = l.window
		}
		return false, retryAfter
	}
	return true, 0
}

func (l *OrgLimiter) local(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.fallback[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.limit)/l.window.Seconds()), l.limit)
		l.fallback[key] = lim
	}
	return lim
}
