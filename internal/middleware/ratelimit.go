package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formcraft-io/formcraft/internal/infra/ratelimit"
	"github.com/formcraft-io/formcraft/internal/modules/serializer"
)

// SubmissionRateLimit throttles by client IP. A limiter error lets the request
// through; a nil limiter disables the check.
func SubmissionRateLimit(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), "submit:"+c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, serializer.Err(http.StatusTooManyRequests, "Too many submissions", nil))
			return
		}
		c.Next()
	}
}
