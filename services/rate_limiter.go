// services/rate_limiter.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateDecision is the outcome of one limiter check.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter counts hits per key. Limit and window are fixed per limiter instance.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// RedisRateLimiter is a fixed-window counter shared by every replica.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return RateDecision{}, fmt.Errorf("incr %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return RateDecision{}, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}
	if count <= l.limit {
		return RateDecision{Allowed: true}, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return RateDecision{}, fmt.Errorf("pttl %s: %w", redisKey, err)
	}
	if ttl < 0 {
		// counter lost its expiry; restart the window
		l.client.Expire(ctx, redisKey, l.window)
		ttl = l.window
	}
	return RateDecision{Allowed: false, RetryAfter: ttl}, nil
}

// MemoryRateLimiter keeps a token bucket per key in this process. Used when Redis is not
// configured; counters are owned by the instance and swept by the scheduler.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
		limiters: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return RateDecision{Allowed: true}, nil
	}
	r := entry.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return RateDecision{Allowed: false, RetryAfter: delay}, nil
}

// Sweep forgets keys idle for longer than idle and returns how many were dropped.
func (l *MemoryRateLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	dropped := 0
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			dropped++
		}
	}
	return dropped
}
