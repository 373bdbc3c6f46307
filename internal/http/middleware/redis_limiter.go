package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisLimiter is a fixed-window limiter shared by every replica through
// Redis. Each window is one INCR on a key that expires with the window.
// When Redis is unreachable the limiter fails open.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
	keyFn  keyFunc
}

// NewRedisLimiter allows limit requests per window for each key. A limit
// <= 0 is coerced to 1 and a window <= 0 to one second.
func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration, keyFn keyFunc) *RedisLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisLimiter{
		rdb:    rdb,
		limit:  int64(limit),
		window: window,
		prefix: "ratelimit:",
		keyFn:  keyFn,
	}
}

// Allow counts one hit against key and reports whether it is within the
// limit, plus the time left in the current window.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := rl.prefix + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rl.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, rl.window)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return true, 0, err
	}
	left := ttl.Val()
	if left < 0 {
		left = rl.window
	}
	return incr.Val() <= rl.limit, left, nil
}

// Handler enforces the limit, skipping idempotent replays.
func (rl *RedisLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		ok, retry, err := rl.Allow(c.Request.Context(), rl.keyFn(c))
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !ok {
			rejectLimited(c, retry)
			return
		}
		c.Next()
	}
}
