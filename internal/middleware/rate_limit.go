package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lms_backend/internal/repository"
	"lms_backend/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitMiddleware(rateLimitRepo repository.RateLimitRepository, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

// Limit applies a fixed-window per-IP counter. On a redis failure requests
// pass through rather than locking everyone out.
func (m *RateLimitMiddleware) Limit(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rate:" + c.ClientIP()

		allowed, err := m.rateLimitRepo.CheckLimit(c.Request.Context(), key, limit)
		if err != nil {
			m.log.Error("rate limit check failed", "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		count, err := m.rateLimitRepo.Increment(c.Request.Context(), key, window)
		if err != nil {
			m.log.Error("rate limit increment failed", "error", err)
		}

		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
