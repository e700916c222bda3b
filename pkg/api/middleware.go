package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
	"github.com/Slimpush/api-yamdb-final-master/pkg/ratelimit"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxUser      = "user"
)

// requestID tags each request with an id, reusing the caller's when given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(ctxRequestID),
		}
		if user := currentUser(c); user != nil {
			attrs = append(attrs, "user_id", user.ID)
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// recovery turns a panic into a 500 with the usual error body.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		s.logger.Error("panic in handler",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxRequestID),
		)
		respondError(c, s.logger, apperr.ErrInternal)
	})
}

// authenticate resolves a bearer token to the current user. Requests without
// an Authorization header continue anonymously; a bad token is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			respondError(c, s.logger, apperr.Unauthenticated("invalid authorization header format"))
			return
		}

		user, err := s.accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, s.logger, err)
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

func (s *Server) rateLimit(limiter *ratelimit.KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !limiter.Allow(key) {
			s.logger.Warn("rate limit exceeded", "ip", key, "path", c.Request.URL.Path)
			respondError(c, s.logger, apperr.RateLimited())
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
