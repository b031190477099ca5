// Package photos serves the shared photo catalog.
package photos

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/pkg/response"
)

// Catalog lists photos.
type Catalog interface {
	ListPhotos(ctx context.Context) ([]models.Photo, error)
}

// TallySource supplies the live tally.
type TallySource interface {
	Snapshot() *models.TallySnapshot
}

// Item is a catalog photo with its live votes.
type Item struct {
	models.Photo
	VoteCount int      `json:"vote_count"`
	Voters    []string `json:"voters"`
}

// Handler handles catalog endpoints.
type Handler struct {
	catalog Catalog
	tally   TallySource
	logger  *zap.Logger
}

// NewHandler creates a catalog handler. tally may be nil.
func NewHandler(catalog Catalog, tally TallySource, logger *zap.Logger) *Handler {
	return &Handler{catalog: catalog, tally: tally, logger: logger}
}

// Register mounts the catalog routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/photos", h.List)
	r.GET("/photos/:id", h.Get)
}

func (h *Handler) items(ctx context.Context) ([]Item, error) {
	list, err := h.catalog.ListPhotos(ctx)
	if err != nil {
		return nil, apperr.Fetch("failed to load photos", err)
	}
	var snap *models.TallySnapshot
	if h.tally != nil {
		snap = h.tally.Snapshot()
	}
	items := make([]Item, 0, len(list))
	for _, p := range list {
		voters := snap.VotersFor(p.ID)
		if voters == nil {
			voters = []string{}
		}
		items = append(items, Item{Photo: p, VoteCount: len(voters), Voters: voters})
	}
	return items, nil
}

// List handles GET /photos.
func (h *Handler) List(c *gin.Context) {
	items, err := h.items(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, items)
}

// Get handles GET /photos/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid photo id")
		return
	}
	items, err := h.items(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	for _, it := range items {
		if it.ID == id {
			response.OK(c, it)
			return
		}
	}
	response.NotFound(c, "photo not found")
}
