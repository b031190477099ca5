package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/pkg/response"
)

// ResetRequest is the body for POST /admin/participants/:id/reset.
type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

// Handler handles admin dashboard endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on the admin group.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/participants", h.Participants)
	r.POST("/participants/:id/reset", h.Reset)
	r.GET("/audit", h.Audit)
}

// Participants handles GET /admin/participants.
func (h *Handler) Participants(c *gin.Context) {
	rows, err := h.svc.Participants(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, rows)
}

// Reset handles POST /admin/participants/:id/reset.
func (h *Handler) Reset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return
	}
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.Reset(c.Request.Context(), id, req.Confirm); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"id": id, "reset": true})
}

// Audit handles GET /admin/audit.
func (h *Handler) Audit(c *gin.Context) {
	issues, err := h.svc.Audit(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, issues)
}
