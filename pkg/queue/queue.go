// Package queue is a Redis list of PDF export jobs with retry and dead-lettering.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// KeyExports holds pending export jobs.
	KeyExports = "bestshot:queue:exports"
	// KeyDead holds jobs that failed MaxAttempts times.
	KeyDead = "bestshot:queue:exports:dead"
	// MaxAttempts is how many times a job runs before it is dead-lettered.
	MaxAttempts = 3
	// RetryBackoff is the pause after a failed attempt.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds one blocking pop so shutdown is noticed.
	PollTimeout = 5 * time.Second
)

// Kind identifies what a job does.
type Kind string

const KindExport Kind = "export"

// ErrWrongKind is returned when a job is decoded as the wrong kind.
var ErrWrongKind = errors.New("unexpected job kind")

// ExportPayload points at the export job record to render.
type ExportPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// Job is the envelope stored in the list.
type Job struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Export decodes the payload of an export job.
func (j *Job) Export() (ExportPayload, error) {
	var p ExportPayload
	if j.Kind != KindExport {
		return p, fmt.Errorf("%w: %q", ErrWrongKind, j.Kind)
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("decode export payload: %w", err)
	}
	return p, nil
}

// Queue pushes and pops export jobs.
type Queue struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewQueue returns a queue on client. logger may be nil.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{rdb: client, logger: logger}
}

func (q *Queue) append(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.rdb.RPush(ctx, key, raw).Err()
}

// EnqueueExport schedules the export identified by payload.
func (q *Queue) EnqueueExport(ctx context.Context, payload ExportPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode export payload: %w", err)
	}
	job := &Job{ID: uuid.NewString(), Kind: KindExport, Payload: body, EnqueuedAt: time.Now().UTC()}
	if err := q.append(ctx, KeyExports, job); err != nil {
		return fmt.Errorf("enqueue export %s: %w", payload.JobID, err)
	}
	q.logger.Debug("export queued", zap.String("job_id", job.ID), zap.String("export_id", payload.JobID.String()))
	return nil
}

// Dequeue blocks up to PollTimeout. A nil job with a nil error means the
// wait timed out.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	vals, err := q.rdb.BLPop(ctx, PollTimeout, KeyExports).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	case len(vals) != 2:
		return nil, nil
	}
	job := new(Job)
	if err := json.Unmarshal([]byte(vals[1]), job); err != nil {
		// A malformed entry cannot be retried; park it with the dead jobs.
		q.logger.Warn("malformed job dropped to dead list", zap.Error(err))
		_ = q.rdb.RPush(ctx, KeyDead, vals[1]).Err()
		return nil, nil
	}
	return job, nil
}

// Retry counts a failed attempt and requeues the job, or moves it to the
// dead list once MaxAttempts is reached. It reports whether the job is dead.
func (q *Queue) Retry(ctx context.Context, job *Job) (bool, error) {
	job.Attempt++
	dead := job.Attempt >= MaxAttempts
	key := KeyExports
	if dead {
		key = KeyDead
	}
	if err := q.append(ctx, key, job); err != nil {
		return false, fmt.Errorf("requeue job %s: %w", job.ID, err)
	}
	if dead {
		q.logger.Warn("export job dead-lettered", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	} else {
		q.logger.Info("export job requeued", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	}
	return dead, nil
}

// Len returns the number of pending export jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, KeyExports).Result()
}

// DeadLen returns the number of dead-lettered jobs.
func (q *Queue) DeadLen(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, KeyDead).Result()
}

// Dead returns the dead-lettered jobs, oldest first.
func (q *Queue) Dead(ctx context.Context) ([]Job, error) {
	raws, err := q.rdb.LRange(ctx, KeyDead, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var j Job
		if json.Unmarshal([]byte(raw), &j) == nil {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}
