package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Change ops on the selection ledger.
const (
	OpInsert = "insert"
	OpDelete = "delete"
)

// Change is one ledger change notification. The feed is global: subscribers
// receive every participant's changes.
type Change struct {
	Op            string    `json:"op"`
	ParticipantID uuid.UUID `json:"participant_id"`
	PhotoIDs      []int64   `json:"photo_ids,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher announces ledger changes.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Subscriber delivers ledger changes until ctx is done, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// Feed is both ends of the change feed.
type Feed interface {
	Publisher
	Subscriber
}

const subscriberBuffer = 16

// LocalFeed fans changes out to subscribers in the same process.
type LocalFeed struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

// NewLocalFeed creates an in-process change feed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[int]chan Change)}
}

// Publish delivers change to every subscriber. A subscriber whose buffer is full
// already has a pending notification and misses nothing it needs.
func (f *LocalFeed) Publish(_ context.Context, change Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber that is removed when ctx is done.
func (f *LocalFeed) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, subscriberBuffer)
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
