package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/logger"
	"github.com/charlesng35/innkeep/pkg/response"
)

// ErrTooManyRequests is returned once a client exhausts its window.
var ErrTooManyRequests = errors.New("RATE_LIMITED", "Too many requests, try again later", 429)

// RateLimitKey derives the counter key for a request.
type RateLimitKey func(c *gin.Context) string

// ClientRouteKey limits per client IP and route template.
func ClientRouteKey(c *gin.Context) string {
	return "ratelimit:" + c.ClientIP() + ":" + c.FullPath()
}

// RateLimit allows limit requests per window for each key. Store failures
// let the request through rather than locking everyone out.
func RateLimit(store RateStore, limit int, window time.Duration, key RateLimitKey) gin.HandlerFunc {
	if key == nil {
		key = ClientRouteKey
	}
	log := logger.WithModule("ratelimit")

	return func(c *gin.Context) {
		if store == nil || limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		count, ttl, err := store.Increment(c.Request.Context(), key(c), window)
		if err != nil {
			log.Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-count)))

		if count > limit {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			response.Error(c, ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
