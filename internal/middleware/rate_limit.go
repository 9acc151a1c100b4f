package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"quick_chat/internal/service"
	"quick_chat/pkg/logger"
	"quick_chat/pkg/ratelimit"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.FullPath() + ":" + c.ClientIP()

		allowed, limit, remaining, err := m.rateLimitService.Allow(c.Request.Context(), key)
		if err != nil {
			// fail open
			m.log.Error("Rate limit check failed", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// HandshakeLimit throttles websocket upgrade attempts per client IP
// before any token work is done.
func HandshakeLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := ratelimit.New(rps, burst, 10*time.Minute)
	return func(c *gin.Context) {
		if ok, _ := limiter.Allow(c.ClientIP(), time.Now()); !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connection attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}
