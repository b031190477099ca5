package voting

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/pkg/response"
)

// ToggleRequest is the body for POST /vote/:code/toggle.
type ToggleRequest struct {
	PhotoID int64 `json:"photo_id" binding:"required"`
}

// SubmitBody is the body for POST /vote/:code/submit.
type SubmitBody struct {
	PhotoIDs []int64 `json:"photo_ids"`
	Confirm  bool    `json:"confirm"`
}

// Handler handles participant vote endpoints. The access code in the path is the only credential.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a vote handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the vote routes.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/vote/:code")
	g.GET("", h.Get)
	g.GET("/selections", h.Selections)
	g.GET("/photos/:photo_id", h.Photo)
	g.POST("/toggle", h.Toggle)
	g.POST("/submit", h.Submit)
}

// Get handles GET /vote/:code.
func (h *Handler) Get(c *gin.Context) {
	view, err := h.svc.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, view)
}

// Selections handles GET /vote/:code/selections.
func (h *Handler) Selections(c *gin.Context) {
	photos, err := h.svc.Selections(c.Request.Context(), c.Param("code"))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, photos)
}

// Photo handles GET /vote/:code/photos/:photo_id.
func (h *Handler) Photo(c *gin.Context) {
	photoID, err := strconv.ParseInt(c.Param("photo_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid photo id")
		return
	}
	card, err := h.svc.Photo(c.Request.Context(), c.Param("code"), photoID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, card)
}

// Toggle handles POST /vote/:code/toggle.
func (h *Handler) Toggle(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	view, err := h.svc.Toggle(c.Request.Context(), c.Param("code"), req.PhotoID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, view)
}

// Submit handles POST /vote/:code/submit.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	view, err := h.svc.Submit(c.Request.Context(), c.Param("code"), SubmitRequest{PhotoIDs: req.PhotoIDs, Confirm: req.Confirm})
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, view)
}
