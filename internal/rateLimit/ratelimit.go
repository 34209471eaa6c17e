package rateLimit

import (
	"context"
	"strconv"
	"time"

	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
)

// RateLimiter is a fixed-window counter per key, shared across API replicas
// through Redis.
type RateLimiter struct {
	redis  *redisadapter.Cache
	rate   int
	period time.Duration
	now    func() time.Time
}

func NewRateLimiter(redis *redisadapter.Cache, rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{redis: redis, rate: rate, period: period, now: time.Now}
}

// Allow counts one request for key in the current window and reports whether
// it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := rl.now().UnixNano() / int64(rl.period)
	fullKey := "rl:" + key + ":" + strconv.FormatInt(window, 10)

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, rl.period)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(rl.rate), nil
}
