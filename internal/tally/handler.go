package tally

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/realtime"
	"github.com/best-shot/backend/pkg/response"
)

// Handler serves the live tally over HTTP and WebSocket.
type Handler struct {
	agg    *Aggregator
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewHandler creates a tally handler.
func NewHandler(agg *Aggregator, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{agg: agg, hub: hub, logger: logger}
}

// Get returns the current snapshot.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, h.agg.Snapshot())
}

// Refresh forces a ledger re-read (POST /admin/tally/refresh).
func (h *Handler) Refresh(c *gin.Context) {
	h.agg.Reload()
	response.Accepted(c, gin.H{"version": h.agg.Snapshot().Version})
}

// Stream upgrades to a WebSocket that receives the snapshot on connect and every new one after.
func (h *Handler) Stream() gin.HandlerFunc {
	return realtime.ServeWs(h.hub, h.logger, func() (string, interface{}) {
		return EventTally, h.agg.Snapshot()
	})
}

// Register mounts the public read-only tally routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/tally", h.Get)
	r.GET("/ws/tally", h.Stream())
}

// RegisterAdmin mounts the forced refresh; r is expected to be the gated admin group.
func (h *Handler) RegisterAdmin(r gin.IRouter) {
	r.POST("/tally/refresh", h.Refresh)
}
