package voting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/internal/metrics"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/realtime"
	"github.com/best-shot/backend/internal/store"
)

// TallySource supplies the current live tally (tally.Aggregator).
type TallySource interface {
	Snapshot() *models.TallySnapshot
}

// SubmitRequest is a submission. PhotoIDs falls back to the saved draft when empty.
type SubmitRequest struct {
	PhotoIDs []int64
	Confirm  bool
}

// Service runs the vote flow against the store, the draft store and the change feed.
type Service struct {
	store   store.Store
	drafts  DraftStore
	feed    realtime.Publisher
	tally   TallySource
	metrics *metrics.Metrics
	logger  *zap.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// NewService creates the vote flow service. feed, tally and m may be nil.
func NewService(st store.Store, drafts DraftStore, feed realtime.Publisher, tally TallySource, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if drafts == nil {
		drafts = NewMemoryDrafts()
	}
	return &Service{
		store:   st,
		drafts:  drafts,
		feed:    feed,
		tally:   tally,
		metrics: m,
		logger:  logger,
		locks:   newKeyedMutex(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) snapshot() *models.TallySnapshot {
	if s.tally == nil {
		return nil
	}
	return s.tally.Snapshot()
}

func (s *Service) participant(ctx context.Context, code string) (*models.Participant, error) {
	p, err := s.store.ParticipantByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("participant not found")
		}
		return nil, apperr.Fetch("failed to load participant", err)
	}
	return p, nil
}

// lock waits for the participant's lock and re-reads the row so checks see
// whatever the previous holder committed.
func (s *Service) lock(ctx context.Context, p *models.Participant) (*models.Participant, func(), error) {
	unlock := s.locks.Lock(p.ID)
	fresh, err := s.store.ParticipantByID(ctx, p.ID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.NotFound("participant not found")
		}
		return nil, nil, apperr.Fetch("failed to load participant", err)
	}
	return fresh, unlock, nil
}

// inFlight returns the unchanged view when a submission for p is in progress.
// Load errors fall through so the locked path reports them.
func (s *Service) inFlight(ctx context.Context, p *models.Participant) *View {
	d, err := s.drafts.Load(ctx, p.ID)
	if err != nil || d == nil || !d.InFlight(s.now()) {
		return nil
	}
	photos, err := s.catalog(ctx)
	if err != nil {
		return nil
	}
	return buildView(p, NewBallot(d.PhotoIDs, true), photos, s.snapshot())
}

func (s *Service) catalog(ctx context.Context) ([]models.Photo, error) {
	photos, err := s.store.ListPhotos(ctx)
	if err != nil {
		return nil, apperr.Fetch("failed to load photos", err)
	}
	return photos, nil
}

// ballot restores the participant's ballot from the ledger (completed) or the draft.
func (s *Service) ballot(ctx context.Context, p *models.Participant) (*Ballot, error) {
	if p.IsCompleted {
		rows, err := s.store.SelectionsByParticipant(ctx, p.ID)
		if err != nil {
			return nil, apperr.Fetch("failed to load selections", err)
		}
		ids := make([]int64, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.PhotoID)
		}
		return CompletedBallot(ids), nil
	}
	d, err := s.drafts.Load(ctx, p.ID)
	if err != nil {
		return nil, apperr.Fetch("failed to load selection", err)
	}
	if d == nil {
		return &Ballot{}, nil
	}
	return NewBallot(d.PhotoIDs, d.InFlight(s.now())), nil
}

// Resolve loads the vote page for code.
func (s *Service) Resolve(ctx context.Context, code string) (*View, error) {
	p, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	photos, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.ballot(ctx, p)
	if err != nil {
		return nil, err
	}
	return buildView(p, b, photos, s.snapshot()), nil
}

// Selections returns the participant's submitted photos in catalog order.
func (s *Service) Selections(ctx context.Context, code string) ([]models.Photo, error) {
	p, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.SelectionsByParticipant(ctx, p.ID)
	if err != nil {
		return nil, apperr.Fetch("failed to load selections", err)
	}
	picked := make(map[int64]bool, len(rows))
	for _, r := range rows {
		picked[r.PhotoID] = true
	}
	photos, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Photo, 0, len(rows))
	for _, ph := range photos {
		if picked[ph.ID] {
			out = append(out, ph)
		}
	}
	return out, nil
}

// Photo returns the zoomed detail card for one photo, voters included.
func (s *Service) Photo(ctx context.Context, code string, photoID int64) (*PhotoCard, error) {
	p, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	photos, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.ballot(ctx, p)
	if err != nil {
		return nil, err
	}
	for _, ph := range photos {
		if ph.ID == photoID {
			card := newCard(ph, s.snapshot())
			card.DisplayURL = ph.URL
			card.Selected = b.Has(ph.ID)
			return &card, nil
		}
	}
	return nil, apperr.NotFound("photo not found")
}

func inCatalog(photos []models.Photo, id int64) bool {
	for _, p := range photos {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Toggle adds or removes photoID from the participant's draft.
func (s *Service) Toggle(ctx context.Context, code string, photoID int64) (*View, error) {
	p, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	if p.IsCompleted {
		return nil, apperr.Conflict("participant already completed", store.ErrAlreadyCompleted)
	}
	if v := s.inFlight(ctx, p); v != nil {
		return v, nil
	}
	p, unlock, err := s.lock(ctx, p)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if p.IsCompleted {
		return nil, apperr.Conflict("participant already completed", store.ErrAlreadyCompleted)
	}
	photos, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	if !inCatalog(photos, photoID) {
		return nil, apperr.Invalid("unknown photo")
	}
	b, err := s.ballot(ctx, p)
	if err != nil {
		return nil, err
	}
	changed, err := b.Toggle(photoID)
	if err != nil {
		return nil, apperr.Conflict("participant already completed", err)
	}
	if changed {
		d := &Draft{PhotoIDs: b.Selected(), UpdatedAt: s.now()}
		if err := s.drafts.Save(ctx, p.ID, d); err != nil {
			return nil, apperr.Write("failed to save selection", err)
		}
		if err := s.store.SetSelectedCount(ctx, p.ID, b.Count()); err != nil {
			s.logger.Warn("mirror selected count", zap.String("participant_id", p.ID.String()), zap.Error(err))
		} else {
			p.SelectedCount = b.Count()
		}
	}
	return buildView(p, b, photos, s.snapshot()), nil
}

// validateSelection checks ids are exactly MaxSelections distinct catalog photos.
func validateSelection(ids []int64, photos []models.Photo) error {
	if len(ids) != models.MaxSelections {
		return apperr.Invalid("exactly 10 photos must be selected")
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperr.Invalid("duplicate photo in selection")
		}
		seen[id] = true
		if !inCatalog(photos, id) {
			return apperr.Invalid("unknown photo")
		}
	}
	return nil
}

// Submit writes the ballot to the ledger and completes the participant in one
// transaction. A failed write releases the draft so the user may retry.
func (s *Service) Submit(ctx context.Context, code string, req SubmitRequest) (*View, error) {
	if !req.Confirm {
		return nil, apperr.Invalid("submission must be confirmed")
	}
	p, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	p, unlock, err := s.lock(ctx, p)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if p.IsCompleted {
		return nil, apperr.Conflict("participant already completed", store.ErrAlreadyCompleted)
	}
	photos, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.ballot(ctx, p)
	if err != nil {
		return nil, err
	}
	if b.State() == StateSubmitting {
		return nil, apperr.Conflict("submission already in progress", ErrSubmitting)
	}
	ids := req.PhotoIDs
	if len(ids) == 0 {
		ids = b.Selected()
	}
	if err := validateSelection(ids, photos); err != nil {
		return nil, err
	}
	b = NewBallot(ids, false)
	if err := b.BeginSubmit(); err != nil {
		return nil, apperr.Invalid("exactly 10 photos must be selected")
	}
	if err := s.drafts.Save(ctx, p.ID, &Draft{PhotoIDs: ids, Submitting: true, UpdatedAt: s.now()}); err != nil {
		s.logger.Warn("mark draft submitting", zap.String("participant_id", p.ID.String()), zap.Error(err))
	}

	at := s.now()
	err = s.store.SubmitSelections(ctx, p.ID, ids, at)
	s.metrics.ObserveSubmission(err)
	if err != nil {
		b.AbortSubmit()
		s.release(ctx, p.ID, ids)
		switch {
		case errors.Is(err, store.ErrAlreadyCompleted):
			return nil, apperr.Conflict("participant already completed", err)
		case errors.Is(err, store.ErrUnknownPhoto):
			return nil, apperr.Invalid("unknown photo")
		}
		return nil, apperr.Write("failed to submit selections", err)
	}
	b.Complete()

	if err := s.drafts.Delete(ctx, p.ID); err != nil {
		s.logger.Warn("delete draft", zap.String("participant_id", p.ID.String()), zap.Error(err))
	}
	s.publish(ctx, realtime.Change{Op: realtime.OpInsert, ParticipantID: p.ID, PhotoIDs: ids, At: at})
	s.logger.Info("ballot submitted", zap.String("participant_id", p.ID.String()))

	p.IsCompleted = true
	p.SelectedCount = len(ids)
	p.CompletedAt = &at
	return buildView(p, b, photos, s.snapshot()), nil
}

// release clears the submitting flag after a failed write.
func (s *Service) release(ctx context.Context, id uuid.UUID, ids []int64) {
	d := &Draft{PhotoIDs: ids, UpdatedAt: s.now()}
	if err := s.drafts.Save(context.WithoutCancel(ctx), id, d); err != nil {
		s.logger.Warn("release draft", zap.String("participant_id", id.String()), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, change realtime.Change) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(context.WithoutCancel(ctx), change); err != nil {
		s.logger.Warn("publish ledger change", zap.String("op", change.Op), zap.Error(err))
	}
}
