package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/session"
	"github.com/boothlead/backend/pkg/response"
)

// SessionResolver resolves the caller's company membership.
type SessionResolver interface {
	Resolve(ctx context.Context, userID, email string) (session.Context, error)
}

// Session resolves the caller's company scope once per request. It must run
// after JWT.
func Session(resolver SessionResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sess, err := resolver.Resolve(c.Request.Context(), c.GetString(ContextUserID), c.GetString(ContextUserEmail))
		if err != nil {
			logger.Warn("resolve session", zap.String("user_id", c.GetString(ContextUserID)), zap.Error(err))
			response.ServiceUnavailable(c, "Could not load your company. Try again.")
			c.Abort()
			return
		}
		c.Set(ContextSession, sess)
		c.Next()
	}
}

// CurrentSession returns the session set by Session, or an empty one.
func CurrentSession(c *gin.Context) session.Context {
	if v, ok := c.Get(ContextSession); ok {
		if sess, ok := v.(session.Context); ok {
			return sess
		}
	}
	return session.Context{UserID: c.GetString(ContextUserID), Email: c.GetString(ContextUserEmail)}
}
