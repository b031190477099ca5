package models

import (
	"time"

	"github.com/google/uuid"
)

// RankedPhoto is a catalog photo with its ledger vote count and 1-based rank.
type RankedPhoto struct {
	Photo
	Rank  int `json:"rank"`
	Count int `json:"count"`
}

// ExportStatus is the lifecycle of an asynchronous PDF export.
type ExportStatus string

const (
	ExportQueued  ExportStatus = "queued"
	ExportRunning ExportStatus = "running"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// ExportJob tracks an asynchronous export rendered by the worker.
type ExportJob struct {
	ID            uuid.UUID    `json:"id"`
	Status        ExportStatus `json:"status"`
	S3Key         string       `json:"s3_key,omitempty"`
	MissingImages []int64      `json:"missing_images,omitempty"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
