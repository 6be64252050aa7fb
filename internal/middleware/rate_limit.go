package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bookedbarber/bookedbarber-api/internal/cache"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
	"github.com/bookedbarber/bookedbarber-api/internal/logger"
)

// LoginRateLimit caps attempts per client IP inside a fixed window.
// Counter lives in redis so the limit holds with multiple API instances.
func LoginRateLimit(c *cache.Cache, max int64, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := fmt.Sprintf("ratelimit:login:%s", ctx.ClientIP())

		n, err := c.Incr(ctx.Request.Context(), key, window)
		if err != nil {
			// redis down must not lock everyone out
			logger.L().Warn("rate limit check failed", zap.Error(err))
			ctx.Next()
			return
		}

		if n > max {
			httperr.TooManyRequests(ctx, "too_many_attempts", "Too many attempts, try again later.")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
