// Package ratelimit implements a fixed-window request limiter stored in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes the limiter decision for one hit.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per key in windows of a fixed length.
type Limiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter builds a limiter allowing limit hits per window.
func NewLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Allow records one hit for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowKey, resetAt := l.windowKey(key, now)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, l.window)
		return nil
	})
	if err != nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("count hit: %w", err)
	}

	hits := int(incr.Val())
	res := Result{Allowed: hits <= l.limit, Limit: l.limit, Remaining: l.limit - hits}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res, nil
}

func (l *Limiter) windowKey(key string, now time.Time) (string, time.Time) {
	start := now.Truncate(l.window)
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, start.Unix()), start.Add(l.window)
}
