package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter: the first hit in a window sets
// the key's expiry, every hit increments it.
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	redisKey := l.prefix + ":" + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count > int64(l.limit) {
		return common.ErrRateLimited
	}
	return nil
}
