package leads

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/middleware"
	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/response"
	"github.com/boothlead/backend/pkg/storage"
)

// AudioStore keeps voice notes recorded at the booth.
type AudioStore interface {
	UploadAudio(ctx context.Context, companyID, leadID, filename, contentType string, body io.Reader, size int64) (string, error)
	PresignAudio(ctx context.Context, key string) (string, error)
	DeleteAudio(ctx context.Context, key string) error
}

// TagsRequest is the body for PUT /leads/:id/tags.
type TagsRequest struct {
	Tags []string `json:"tags"`
}

// ListResponse is the body of GET /leads.
type ListResponse struct {
	Leads    []models.Lead `json:"leads"`
	Total    int           `json:"total"`
	HotCount int           `json:"hot_count"`
}

// Handler handles lead HTTP endpoints.
type Handler struct {
	repo   *Repository
	audio  AudioStore
	logger *zap.Logger
}

// NewHandler creates a leads handler. audio may be nil when no bucket is configured.
func NewHandler(repo *Repository, audio AudioStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, audio: audio, logger: logger}
}

// Scan handles POST /leads/scan.
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id, err := h.repo.CreateLeadFromScan(c.Request.Context(), middleware.CurrentSession(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// List handles GET /leads. ?q= filters by name, title or company.
func (h *Handler) List(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	rows, err := h.repo.FetchLeadsByScope(c.Request.Context(), sess.Scope)
	if err != nil {
		h.fail(c, err)
		return
	}
	names := h.repo.ResolveCompanyNames(c.Request.Context(), rows)
	rows = FilterLeads(rows, c.Query("q"), names)

	out := ListResponse{Leads: make([]models.Lead, 0, len(rows)), Total: len(rows), HotCount: CountHot(rows)}
	for _, row := range rows {
		lead := ToLead(row)
		lead.Company = CompanyDisplay(row, names)
		out.Leads = append(out.Leads, lead)
	}
	response.OK(c, out)
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	row, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, ToLead(row))
}

// Update handles PATCH /leads/:id. The body carries edit form fields; fields
// left out keep their stored value.
func (h *Handler) Update(c *gin.Context) {
	row, ok := h.load(c)
	if !ok {
		return
	}
	edit := NewEditSession(h.repo, middleware.CurrentSession(c).Scope, row)
	form := edit.Form()
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	edit.Edit(func(f *EditForm) { *f = form })
	saved, err := edit.Save(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ToLead(saved))
}

// MarkHot handles POST /leads/:id/hot.
func (h *Handler) MarkHot(c *gin.Context) {
	row, err := h.repo.MarkLeadHotByScope(c.Request.Context(), middleware.CurrentSession(c).Scope, c.Param("id"))
	h.respondRow(c, row, err)
}

// SetTags handles PUT /leads/:id/tags.
func (h *Handler) SetTags(c *gin.Context) {
	var req TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	row, err := h.repo.UpdateQuickTags(c.Request.Context(), middleware.CurrentSession(c).Scope, c.Param("id"), req.Tags)
	h.respondRow(c, row, err)
}

// UploadAudio handles POST /leads/:id/audio (multipart field "file").
func (h *Handler) UploadAudio(c *gin.Context) {
	if h.audio == nil {
		response.ServiceUnavailable(c, "Audio notes are not configured.")
		return
	}
	row, ok := h.load(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "attach an audio file")
		return
	}
	if file.Size > storage.MaxAudioFileSize {
		response.BadRequest(c, "audio file is too large")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateAudioFileType(contentType, file.Filename) {
		response.BadRequest(c, storage.ErrUnsupportedAudio.Error())
		return
	}
	body, err := file.Open()
	if err != nil {
		response.BadRequest(c, "could not read the audio file")
		return
	}
	defer body.Close()

	ctx := c.Request.Context()
	leadID := GetLeadID(row)
	key, err := h.audio.UploadAudio(ctx, GetCompanyID(row), leadID, file.Filename, contentType, body, file.Size)
	if err != nil {
		h.logger.Error("upload audio", zap.String("lead_id", leadID), zap.Error(err))
		response.Fail(c, http.StatusBadGateway, "Could not upload the audio note. Try again.", "upstream")
		return
	}
	saved, err := h.repo.UpdateLeadByScope(ctx, middleware.CurrentSession(c).Scope, leadID, store.Row{"audio_uri": key})
	if err != nil || saved == nil {
		if delErr := h.audio.DeleteAudio(ctx, key); delErr != nil {
			h.logger.Warn("remove orphaned audio", zap.String("key", key), zap.Error(delErr))
		}
		if err == nil {
			err = ErrNotSaved
		}
		h.fail(c, err)
		return
	}
	response.Created(c, ToLead(saved))
}

// AudioURL handles GET /leads/:id/audio-url.
func (h *Handler) AudioURL(c *gin.Context) {
	row, ok := h.load(c)
	if !ok {
		return
	}
	uri := GetLeadAudioURI(row)
	switch {
	case uri == "":
		response.NotFound(c, "this lead has no audio note")
	case storage.IsAudioKey(uri):
		if h.audio == nil {
			response.ServiceUnavailable(c, "Audio notes are not configured.")
			return
		}
		url, err := h.audio.PresignAudio(c.Request.Context(), uri)
		if err != nil {
			h.logger.Error("presign audio", zap.String("key", uri), zap.Error(err))
			response.Fail(c, http.StatusBadGateway, "Could not load the audio note.", "upstream")
			return
		}
		response.OK(c, gin.H{"url": url})
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		response.OK(c, gin.H{"url": uri})
	default:
		response.NotFound(c, "the audio note was not uploaded from the device")
	}
}

// Priority handles GET /priority.
func (h *Handler) Priority(c *gin.Context) {
	board, err := h.repo.FetchPriorityLeads(c.Request.Context(), middleware.CurrentSession(c).Scope)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, board)
}

// ActiveEvent handles GET /events/active.
func (h *Handler) ActiveEvent(c *gin.Context) {
	event, err := h.repo.FetchActiveEventByCompanyID(c.Request.Context(), middleware.CurrentSession(c).Scope.CompanyID())
	if err != nil {
		h.fail(c, err)
		return
	}
	if event == nil {
		response.NotFound(c, ErrNoActiveEvent.Error())
		return
	}
	response.OK(c, ToEvent(event))
}

func (h *Handler) load(c *gin.Context) (store.Row, bool) {
	row, err := h.repo.FetchLeadByScopeAndID(c.Request.Context(), middleware.CurrentSession(c).Scope, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if row == nil {
		response.NotFound(c, "lead not found")
		return nil, false
	}
	return row, true
}

func (h *Handler) respondRow(c *gin.Context, row store.Row, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if row == nil {
		response.NotFound(c, "lead not found")
		return
	}
	response.OK(c, ToLead(row))
}

// fail renders err with a display message; raw backend errors are only logged.
func (h *Handler) fail(c *gin.Context, err error) {
	msg := UserMessage(err)
	switch {
	case errors.Is(err, ErrEmptyPatch):
		response.BadRequest(c, msg)
	case IsValidation(err):
		response.Unprocessable(c, msg)
	case errors.Is(err, ErrNotSaved):
		response.NotFound(c, "lead not found")
	case errors.Is(err, store.ErrNotConfigured):
		response.ServiceUnavailable(c, msg)
	case errors.Is(err, context.DeadlineExceeded):
		response.Fail(c, http.StatusGatewayTimeout, msg, "timeout")
	default:
		h.logger.Error("lead request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Fail(c, http.StatusBadGateway, msg, "upstream")
	}
}
