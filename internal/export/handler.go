package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/pkg/queue"
	"github.com/best-shot/backend/pkg/response"
)

// Enqueuer hands export jobs to the worker.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) error
}

// Presigner signs download links for uploaded exports.
type Presigner interface {
	PresignDownload(ctx context.Context, key, filename string) (string, error)
}

// JobView is an export job with its download link once done.
type JobView struct {
	*models.ExportJob
	DownloadURL string `json:"download_url,omitempty"`
}

// Handler serves admin ranking and export endpoints.
type Handler struct {
	svc       *Service
	jobs      JobStore
	queue     Enqueuer
	presigner Presigner
	filename  string
	logger    *zap.Logger
}

// NewHandler creates an export handler. queue and presigner may be nil, which
// disables asynchronous exports.
func NewHandler(svc *Service, jobs JobStore, q Enqueuer, presigner Presigner, filename string, logger *zap.Logger) *Handler {
	if jobs == nil {
		jobs = NewMemoryJobStore()
	}
	return &Handler{svc: svc, jobs: jobs, queue: q, presigner: presigner, filename: filename, logger: logger}
}

// Register mounts the routes on the admin group.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ranking", h.Ranking)
	r.POST("/export", h.Export)
	r.POST("/exports", h.Enqueue)
	r.GET("/exports/:id", h.Job)
}

// Ranking handles GET /admin/ranking.
func (h *Handler) Ranking(c *gin.Context) {
	ranked, err := h.svc.Ranking(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	response.OK(c, ranked)
}

// Export handles POST /admin/export: renders synchronously and streams the PDF.
func (h *Handler) Export(c *gin.Context) {
	res, err := h.svc.Build(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.filename))
	c.Header("X-Missing-Images", strconv.Itoa(len(res.MissingImages)))
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

// Enqueue handles POST /admin/exports.
func (h *Handler) Enqueue(c *gin.Context) {
	if h.queue == nil {
		apperr.Respond(c, h.logger, apperr.Unavailable("background exports are not configured"))
		return
	}
	now := time.Now().UTC()
	job := &models.ExportJob{ID: uuid.New(), Status: models.ExportQueued, CreatedAt: now, UpdatedAt: now}
	ctx := c.Request.Context()
	if err := h.jobs.Save(ctx, job); err != nil {
		apperr.Respond(c, h.logger, apperr.Write("failed to create export job", err))
		return
	}
	if err := h.queue.EnqueueExport(ctx, queue.ExportPayload{JobID: job.ID}); err != nil {
		apperr.Respond(c, h.logger, apperr.Write("failed to enqueue export job", err))
		return
	}
	response.Accepted(c, job)
}

// Job handles GET /admin/exports/:id.
func (h *Handler) Job(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid job id")
		return
	}
	ctx := c.Request.Context()
	job, err := h.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			apperr.Respond(c, h.logger, apperr.NotFound("export job not found"))
			return
		}
		apperr.Respond(c, h.logger, apperr.Fetch("failed to load export job", err))
		return
	}
	view := JobView{ExportJob: job}
	if job.Status == models.ExportDone && job.S3Key != "" && h.presigner != nil {
		url, err := h.presigner.PresignDownload(ctx, job.S3Key, h.filename)
		if err != nil {
			apperr.Respond(c, h.logger, apperr.Fetch("failed to sign download url", err))
			return
		}
		view.DownloadURL = url
	}
	response.OK(c, view)
}
