package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"nedapay-api/internal/logging"
)

// RateLimiter is a fixed-window per-key counter backed by Redis, shared
// across instances. The first hit in a window creates the key with a TTL.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{Redis: rdb, Prefix: prefix, Limit: limit, Window: window}
}

// Allow increments the counter for key and reports whether it is within the
// limit. A Redis failure fails open: limiting is protection, not correctness.
func (rl *RateLimiter) Allow(c *gin.Context, key string) bool {
	ctx := c.Request.Context()
	redisKey := fmt.Sprintf("%s:%s", rl.Prefix, key)

	// Pipelined so the TTL lands with the increment; EXPIRE NX also repairs
	// a counter that somehow lost its TTL, instead of limiting forever.
	pipe := rl.Redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	expire := pipe.ExpireNX(ctx, redisKey, rl.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.Sugar().Warnw("rate limiter redis error", "err", err)
		return true
	}
	if err := expire.Err(); err != nil {
		logging.Sugar().Warnw("rate limiter failed to set ttl", "key", redisKey, "err", err)
	}
	return incr.Val() <= int64(rl.Limit)
}

// Middleware applies the limiter per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c, c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}
