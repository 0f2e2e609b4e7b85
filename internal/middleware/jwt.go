package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/boothlead/backend/internal/auth"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextSession is the key for the resolved session.Context.
	ContextSession = "session"
	// ContextRequestID is the key for the request id.
	ContextRequestID = "request_id"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWT validates the bearer token and sets the caller in context. The raw
// token is attached to the request context so remote store calls run under
// the caller's row-level permissions.
func JWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		token = strings.TrimSpace(token)
		claims, err := verifier.Verify(token)
		if err != nil {
			response.Unauthorized(c, "Your session has expired. Sign in again.")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextUserEmail, claims.Email)
		c.Request = c.Request.WithContext(store.WithAccessToken(c.Request.Context(), token))
		c.Next()
	}
}
