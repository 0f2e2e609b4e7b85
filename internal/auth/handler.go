package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/response"
)

// SignInRequest is the body for POST /auth/sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordAuthenticator signs users in with a password.
type PasswordAuthenticator interface {
	PasswordSignIn(ctx context.Context, email, password string) (*Session, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	auth   PasswordAuthenticator
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(a PasswordAuthenticator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: a, logger: logger}
}

// SignIn handles POST /auth/sign-in.
func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, ErrMissingCredentials.Error())
		return
	}
	sess, err := h.auth.PasswordSignIn(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		response.OK(c, sess)
	case errors.Is(err, ErrMissingCredentials):
		response.BadRequest(c, err.Error())
	case errors.Is(err, store.ErrNotConfigured):
		response.ServiceUnavailable(c, "Sign-in is not configured.")
	default:
		h.logger.Debug("sign-in failed", zap.Error(err))
		msg := store.Message(err)
		if msg == "" {
			msg = "Unable to sign in. Try again."
		}
		response.Unauthorized(c, msg)
	}
}
