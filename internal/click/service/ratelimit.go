package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "click_rl"

// RateLimiter counts clicks per partner+identifier in a fixed redis window.
// Keeping the state in redis (not process memory) lets multiple instances
// share one view of the window.
type RateLimiter struct {
	redis  *redis.Client
	log    *zap.Logger
	window time.Duration
	max    int
}

func NewRateLimiter(rdb *redis.Client, log *zap.Logger, window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		redis:  rdb,
		log:    log.Named("click.ratelimit"),
		window: window,
		max:    max,
	}
}

// Allow records one click against the partner+identifier window and reports
// whether it stayed under the cap. Redis failures fail open: a broken
// limiter must not cost the partner valid clicks.
func (rl *RateLimiter) Allow(ctx context.Context, partnerID, identifier string) bool {
	if identifier == "" {
		return true
	}

	key := fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, partnerID, identifier)

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		rl.log.Warn("rate limit check failed, allowing click", zap.Error(err))
		return true
	}
	if count == 1 {
		rl.redis.Expire(ctx, key, rl.window)
	}

	return count <= int64(rl.max)
}

// Reset clears all rate-limit windows. Test lifecycle hook.
func (rl *RateLimiter) Reset(ctx context.Context) error {
	iter := rl.redis.Scan(ctx, 0, rateLimitKeyPrefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := rl.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
