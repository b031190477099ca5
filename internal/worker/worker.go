// Package worker renders queued exports and uploads them to object storage.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/export"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/pkg/queue"
	"github.com/best-shot/backend/pkg/storage"
)

// Builder renders an export (export.Service).
type Builder interface {
	Build(ctx context.Context) (*export.Result, error)
}

// Uploader stores rendered files (storage.S3).
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
}

// JobQueue is the subset of queue.Queue the worker loop uses.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// ExportProcessor processes export jobs: render the PDF, upload to S3, record status.
type ExportProcessor struct {
	builder  Builder
	jobs     export.JobStore
	uploader Uploader
	queue    JobQueue
	filename string
	backoff  time.Duration
	logger   *zap.Logger
}

// NewExportProcessor creates an export processor.
func NewExportProcessor(builder Builder, jobs export.JobStore, uploader Uploader, q JobQueue, filename string, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{
		builder:  builder,
		jobs:     jobs,
		uploader: uploader,
		queue:    q,
		filename: filename,
		backoff:  queue.RetryBackoff,
		logger:   logger,
	}
}

func (p *ExportProcessor) update(ctx context.Context, job *models.ExportJob, status models.ExportStatus) {
	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	if err := p.jobs.Save(ctx, job); err != nil {
		p.logger.Warn("save export job status", zap.String("export_id", job.ID.String()), zap.Error(err))
	}
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.Export()
	if err != nil {
		return err
	}

	ej, err := p.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", payload.JobID, err)
	}
	if ej.Status == models.ExportDone {
		p.logger.Info("export already done", zap.String("export_id", ej.ID.String()))
		return nil
	}
	p.update(ctx, ej, models.ExportRunning)

	res, err := p.builder.Build(ctx)
	if err != nil {
		ej.Error = err.Error()
		p.update(ctx, ej, models.ExportFailed)
		return fmt.Errorf("build export: %w", err)
	}

	key := storage.ExportKey(ej.ID.String(), p.filename)
	if err := p.uploader.Upload(ctx, key, storage.ContentTypePDF, bytes.NewReader(res.PDF), int64(len(res.PDF))); err != nil {
		ej.Error = err.Error()
		p.update(ctx, ej, models.ExportFailed)
		return fmt.Errorf("s3 upload: %w", err)
	}

	ej.S3Key = key
	ej.MissingImages = res.MissingImages
	ej.Error = ""
	p.update(ctx, ej, models.ExportDone)
	p.logger.Info("export completed", zap.String("export_id", ej.ID.String()), zap.String("s3_key", key), zap.Int("missing_images", len(res.MissingImages)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if _, reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
