// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the process-local limiter: one token bucket per
// caller (user id, else client IP) with opportunistic eviction of idle
// buckets. RedisLimiter in redis_limiter.go enforces the same policy across
// replicas. Both skip idempotent replays flagged by IdempotencyValidator.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter is implemented by every rate limiter the router can install.
type Limiter interface {
	Handler() gin.HandlerFunc
}

// keyFunc selects the bucket identity for a request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated user, falling back to the
// client IP. Keys are prefixed so the two namespaces never collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := userIDFromCtx(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter.
//
// A bucket is created the first time a key is seen and lives in a map
// guarded by a mutex. Buckets idle for longer than the TTL are dropped
// during lookups, which keeps memory proportional to active callers.
//
// This type is safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter keyed by keyFn.
//
//   - rps:   tokens added per second to each bucket; 0 admits only the burst.
//   - burst: bucket capacity; values <= 0 are coerced to 1.
//   - keyFn: maps a request to its bucket, usually KeyByUserOrIP().
//
// Install the result with Handler(). Idle buckets expire after ten minutes.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the bucket for key, creating it on first use. Every
// 5000 lookups idle buckets are evicted, before the requested one is
// touched so a stale bucket can be dropped even when it is the one asked for.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay that should not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware enforcing the limit.
//
// Behavior:
//   - Requests flagged by IdempotencyValidator as replays pass untouched and
//     consume no token.
//   - Otherwise one token is taken from the caller's bucket.
//   - An empty bucket aborts with 429, code "rate_limited", and
//     Retry-After: 1.
//
// Install it after Auth so buckets key on the user id rather than the IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		rejectLimited(c, time.Second)
	}
}

// rejectLimited writes the 429 envelope. Retry-After is rounded up to whole
// seconds with a floor of one.
func rejectLimited(c *gin.Context, retry time.Duration) {
	secs := int((retry + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	abortJSON(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
}
