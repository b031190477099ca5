package voting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// submitStaleAfter bounds how long a submitting flag blocks toggles after a
// crashed or abandoned submission.
const submitStaleAfter = time.Minute

// Draft is a participant's saved, not yet submitted selection.
type Draft struct {
	PhotoIDs   []int64   `json:"photo_ids"`
	Submitting bool      `json:"submitting"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// InFlight reports whether the draft is being submitted right now.
func (d *Draft) InFlight(now time.Time) bool {
	return d != nil && d.Submitting && now.Sub(d.UpdatedAt) < submitStaleAfter
}

// DraftStore persists drafts. Load returns (nil, nil) when there is none.
type DraftStore interface {
	Load(ctx context.Context, participantID uuid.UUID) (*Draft, error)
	Save(ctx context.Context, participantID uuid.UUID, d *Draft) error
	Delete(ctx context.Context, participantID uuid.UUID) error
}

// MemoryDrafts keeps drafts in process memory (single instance, tests).
type MemoryDrafts struct {
	mu     sync.RWMutex
	drafts map[uuid.UUID]Draft
}

// NewMemoryDrafts creates an empty in-memory draft store.
func NewMemoryDrafts() *MemoryDrafts {
	return &MemoryDrafts{drafts: make(map[uuid.UUID]Draft)}
}

func (m *MemoryDrafts) Load(_ context.Context, participantID uuid.UUID) (*Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[participantID]
	if !ok {
		return nil, nil
	}
	d.PhotoIDs = append([]int64(nil), d.PhotoIDs...)
	return &d, nil
}

func (m *MemoryDrafts) Save(_ context.Context, participantID uuid.UUID, d *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.PhotoIDs = append([]int64(nil), d.PhotoIDs...)
	m.drafts[participantID] = cp
	return nil
}

func (m *MemoryDrafts) Delete(_ context.Context, participantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, participantID)
	return nil
}
