// Package tally keeps the live per-photo voter lists. A single goroutine owns
// the mapping and publishes immutable snapshots; readers never see a partial
// refresh and an older read can never replace a newer one.
package tally

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/metrics"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/realtime"
)

// EventTally is the WebSocket event carrying a snapshot.
const EventTally = "tally"

// VoteLister reads the ledger joined with voter names.
type VoteLister interface {
	ListVotes(ctx context.Context) ([]models.Vote, error)
}

// Broadcaster pushes events to connected clients (realtime.Hub).
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Aggregator re-reads the ledger on change notifications and publishes snapshots.
type Aggregator struct {
	votes   VoteLister
	feed    realtime.Subscriber
	hub     Broadcaster
	metrics *metrics.Metrics
	logger  *zap.Logger
	resync  time.Duration

	snapshot atomic.Pointer[models.TallySnapshot]

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	reloadCh chan struct{}
}

// NewAggregator creates an aggregator. resyncSec > 0 re-reads the ledger
// periodically even without notifications. hub and m may be nil.
func NewAggregator(votes VoteLister, feed realtime.Subscriber, hub Broadcaster, m *metrics.Metrics, resyncSec int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		votes:    votes,
		feed:     feed,
		hub:      hub,
		metrics:  m,
		logger:   logger,
		resync:   time.Duration(resyncSec) * time.Second,
		reloadCh: make(chan struct{}, 1),
	}
	a.snapshot.Store(&models.TallySnapshot{Voters: map[int64][]string{}, Counts: map[int64]int{}})
	return a
}

// Start subscribes to the change feed and begins the refresh loop. Call Stop to
// tear the subscription down.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	var changes <-chan realtime.Change
	if a.feed != nil {
		ch, err := a.feed.Subscribe(ctx)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe to ledger changes: %w", err)
		}
		changes = ch
	}
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, changes, a.done)
	a.logger.Info("tally aggregator started", zap.Duration("resync", a.resync))
	return nil
}

// Stop ends the loop and waits for it to exit.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.cancel = nil
	<-a.done
	a.logger.Info("tally aggregator stopped")
}

// Reload requests a refresh. Requests made while one is pending are merged.
func (a *Aggregator) Reload() {
	select {
	case a.reloadCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest published snapshot. Never nil.
func (a *Aggregator) Snapshot() *models.TallySnapshot {
	return a.snapshot.Load()
}

func (a *Aggregator) run(ctx context.Context, changes <-chan realtime.Change, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if a.resync > 0 {
		ticker := time.NewTicker(a.resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	a.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				a.logger.Warn("ledger change feed closed; relying on resync")
				changes = nil
				continue
			}
			drain(changes)
			a.refresh(ctx)
		case <-a.reloadCh:
			a.refresh(ctx)
		case <-tick:
			a.refresh(ctx)
		}
	}
}

// drain discards notifications already queued; one refresh covers them all.
func drain(changes <-chan realtime.Change) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (a *Aggregator) refresh(ctx context.Context) {
	votes, err := a.votes.ListVotes(ctx)
	a.metrics.ObserveTallyRefresh(err)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("tally refresh failed; keeping previous snapshot", zap.Error(err))
		}
		return
	}
	prev := a.snapshot.Load()
	next := Build(votes)
	next.Version = prev.Version + 1
	next.RefreshedAt = time.Now().UTC()
	a.snapshot.Store(next)
	if a.hub != nil {
		a.hub.Broadcast(EventTally, next)
	}
}

// Build groups votes by photo. votes must already be ordered by vote time then name.
func Build(votes []models.Vote) *models.TallySnapshot {
	s := &models.TallySnapshot{
		Voters: make(map[int64][]string),
		Counts: make(map[int64]int),
	}
	for _, v := range votes {
		s.Voters[v.PhotoID] = append(s.Voters[v.PhotoID], models.DisplayName(v.VoterName))
		s.Counts[v.PhotoID]++
	}
	return s
}
