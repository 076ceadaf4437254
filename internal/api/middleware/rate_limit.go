package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// Limiter admits or refuses one request for key. *redis.Client implements it.
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit allows limit requests per window for each client and route.
// Signed-in callers are keyed by user id, anonymous ones by IP.
// A nil limiter, or a limiter error, lets the request through.
func RateLimit(limiter Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		who := c.GetString("user_id")
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("kairo:rate_limit:%s:%s", who, c.FullPath())

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "too many requests, try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
