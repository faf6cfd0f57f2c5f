package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
)

const userIDKey = "auth.user_id"

// bearerToken pulls the access token out of the Authorization header.
// Both "Bearer <token>" and a bare token are accepted.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(header)
}

// requireAuth resolves the bearer token to a user id and aborts with 401
// when it cannot.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := s.Sessions.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
				Code: http.StatusUnauthorized,
				Msg:  "authentication required",
				Data: nil,
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// rateLimit throttles by client IP and route. A limiter outage fails open;
// throttling is protection, not a correctness gate.
func (s *Server) rateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		allowed, retryAfter, err := s.Limiter.Allow(c.Request.Context(), key, time.Now())
		if err != nil {
			s.Logger.Warn("rate limiter unavailable", slog.String("scope", scope), slog.Any("error", err))
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, envelope{
				Code: http.StatusTooManyRequests,
				Msg:  "too many requests, slow down",
				Data: nil,
			})
			return
		}
		c.Next()
	}
}
