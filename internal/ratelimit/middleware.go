package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sessionhistory/internal/observability"
)

// Gate rejects requests over the class limit with 429. Counter failures let the request through.
func Gate(l *Limiter, class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		d, err := l.Allow(ctx, class, c.ClientIP())
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("rate limit check failed", "class", class, "error", err)
			c.Next()
			return
		}
		if d.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
