package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/best-shot/backend/internal/models"
)

// ErrJobNotFound is returned for an unknown or expired export job.
var ErrJobNotFound = errors.New("export job not found")

// JobStore records the status of asynchronous exports.
type JobStore interface {
	Save(ctx context.Context, job *models.ExportJob) error
	Get(ctx context.Context, id uuid.UUID) (*models.ExportJob, error)
}

const (
	jobKeyPrefix = "bestshot:export:"
	jobTTL       = 24 * time.Hour
)

// RedisJobStore keeps job status as JSON values that expire after a day.
type RedisJobStore struct {
	client *redis.Client
}

// NewRedisJobStore creates a Redis-backed job store.
func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

func (r *RedisJobStore) Save(ctx context.Context, job *models.ExportJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, jobKeyPrefix+job.ID.String(), raw, jobTTL).Err(); err != nil {
		return fmt.Errorf("save export job: %w", err)
	}
	return nil
}

func (r *RedisJobStore) Get(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	raw, err := r.client.Get(ctx, jobKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load export job: %w", err)
	}
	var job models.ExportJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode export job: %w", err)
	}
	return &job, nil
}

// MemoryJobStore keeps job status in process memory.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.ExportJob
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]models.ExportJob)}
}

func (m *MemoryJobStore) Save(_ context.Context, job *models.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *MemoryJobStore) Get(_ context.Context, id uuid.UUID) (*models.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}
