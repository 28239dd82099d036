package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	limit  int64
	window time.Duration
	// client overrides the global redis connection; nil uses config.GetRedisDB.
	client *redis.Client
}

func NewRateLimiter(limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window}
}

func (rl *RateLimiter) redisClient() *redis.Client {
	if rl.client != nil {
		return rl.client
	}
	return config.GetRedisDB()
}

// hit counts one request against key. The window's TTL is set in the same
// MULTI as the increment, so a counter never outlives its window.
func (rl *RateLimiter) hit(ctx context.Context, client *redis.Client, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, rl.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimitMiddleware counts requests per client IP in Redis. Without a
// Redis connection requests pass through.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	client := rl.redisClient()
	if client == nil {
		c.Next()
		return
	}

	count, err := rl.hit(c.Request.Context(), client, "ratelimit:"+c.ClientIP())
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}
	c.Next()
}
