package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"torcida-quiz-service/internal/auth"
	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/logger"
)

const userIDKey = "userID"

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// optionalAuth attaches the caller's user id when a bearer token is sent.
// A token that is present but invalid is rejected rather than ignored.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			s.respondError(c, domain.ErrUnauthorized)
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// identity resolves who is playing: the token's account first, then a CPF.
func identity(c *gin.Context, rawCPF, name string) (domain.Identity, error) {
	if id := userID(c); id != "" {
		return domain.AccountIdentity{UserID: id}, nil
	}
	if rawCPF != "" {
		return domain.AnonymousIdentity{CPF: rawCPF, Name: name}, nil
	}
	return nil, domain.ErrUnauthorized
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id := userID(c); id != "" {
			fields = append(fields, "user_id", id)
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}
