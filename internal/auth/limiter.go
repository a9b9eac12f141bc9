// Package auth issues and verifies bearer tokens and throttles login attempts.
package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterPrefix = "login_attempts:"

// LoginLimiter counts login attempts per key in fixed windows stored in Redis.
type LoginLimiter struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
}

func NewLoginLimiter(rdb *redis.Client, max int64, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, max: max, window: window}
}

// Allow records an attempt for key and reports whether it is within the
// limit. The window starts at the first attempt.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := limiterPrefix + key

	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= l.max, nil
}

// Reset clears the counter for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, limiterPrefix+key).Err()
}
