package middleware

import (
	"net/http"

	"hangout/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit returns a middleware that limits by client IP.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
