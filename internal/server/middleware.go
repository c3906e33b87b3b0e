// internal/server/middleware.go
package server

import (
	"fmt"
	"net/http"
	"time"

	"faq-chatbot/internal/models"

	"github.com/gin-gonic/gin"
)

const rateLimitKeyPrefix = "ratelimit:"

// requestLogger emits one structured line per request after it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Seconds(),
			"client":  c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("request failed", fields)
		} else {
			s.logger.Info("request handled", fields)
		}
	}
}

// cors reflects configured origins. An empty origin list allows any origin,
// matching development defaults.
func (s *Server) cors() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.config.Server.CORSOrigins))
	allowAll := len(s.config.Server.CORSOrigins) == 0
	for _, origin := range s.config.Server.CORSOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// rateLimit enforces a fixed window per client IP backed by Redis. The first
// hit in a window creates the counter and arms its expiry; the window
// boundary is coarse but shared across replicas.
func (s *Server) rateLimit() gin.HandlerFunc {
	limit := s.config.Server.RateLimit.Requests
	window := time.Duration(s.config.Server.RateLimit.Window) * time.Second

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s%s", rateLimitKeyPrefix, c.ClientIP())

		count, err := s.redis.Incr(c.Request.Context(), key)
		if err != nil {
			// Rate limiting is protective, not load-bearing; fail open.
			s.logger.Warn("rate limit counter unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			c.Next()
			return
		}
		if count == 1 {
			if err := s.redis.Expire(c.Request.Context(), key, window); err != nil {
				s.logger.Warn("rate limit expiry not set", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:     "rate limit exceeded, please try again later",
				ErrorCode: "RATE_LIMIT_EXCEEDED",
			})
			return
		}
		c.Next()
	}
}
