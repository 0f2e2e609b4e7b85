package profile

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/middleware"
	"github.com/boothlead/backend/pkg/response"
)

// UpdateRequest is the body for PATCH /profile.
type UpdateRequest struct {
	FullName string `json:"full_name"`
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a profile handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Get handles GET /profile.
func (h *Handler) Get(c *gin.Context) {
	p, err := h.repo.GetProfile(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUserEmail))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

// Update handles PATCH /profile.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, ErrFullNameRequired.Error())
		return
	}
	p, err := h.repo.UpdateFullName(c.Request.Context(),
		c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextUserEmail), req.FullName)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrFullNameRequired):
		response.Unprocessable(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Profile not found.")
	default:
		h.logger.Error("profile request failed", zap.Error(err))
		response.Fail(c, http.StatusBadGateway, "Unable to save your profile. Try again.", "upstream")
	}
}
