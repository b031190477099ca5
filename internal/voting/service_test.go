package voting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/realtime"
	"github.com/best-shot/backend/internal/store"
	"github.com/best-shot/backend/internal/store/sqlite"
	"github.com/best-shot/backend/internal/store/storetest"
)

type fixture struct {
	store  *sqlite.Store
	drafts *MemoryDrafts
	feed   *realtime.LocalFeed
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.NewSQLite(t)
	storetest.SeedPhotos(t, st, 15, "https://cdn.example.com")
	storetest.SeedParticipant(t, st, "홍길동 님", "ABC123")
	storetest.SeedParticipant(t, st, "Kim", "XYZ789")
	f := &fixture{store: st, drafts: NewMemoryDrafts(), feed: realtime.NewLocalFeed()}
	f.svc = NewService(st, f.drafts, f.feed, nil, nil, zap.NewNop())
	return f
}

func toggleAll(t *testing.T, svc *Service, code string, ids []int64) *View {
	t.Helper()
	var v *View
	for _, id := range ids {
		var err error
		v, err = svc.Toggle(context.Background(), code, id)
		require.NoError(t, err)
	}
	return v
}

func TestResolveUnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Resolve(context.Background(), "NOPE00")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Resolve(context.Background(), "abc123")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "codes are case-sensitive")
}

func TestVoteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Resolve(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, StateNotStarted, v.State)
	assert.Equal(t, 0, v.Count)
	assert.Equal(t, 10, v.Max)
	assert.Equal(t, "홍길동", v.Participant.Name)
	assert.Len(t, v.Photos, 15)

	picked := []int64{2, 3, 5, 7, 8, 9, 11, 12, 13, 15}
	v = toggleAll(t, f.svc, "ABC123", picked)
	assert.Equal(t, StateReady, v.State)
	assert.True(t, v.CanSubmit)
	for _, card := range v.Photos {
		assert.Equal(t, !card.Selected, card.Disabled, "photo %d", card.ID)
	}

	p, err := f.store.ParticipantByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 10, p.SelectedCount)
	assert.False(t, p.IsCompleted)

	_, err = f.svc.Submit(ctx, "ABC123", SubmitRequest{})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err), "confirmation required")

	v, err = f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, v.State)

	v, err = f.svc.Resolve(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, v.State)
	require.Len(t, v.Photos, 10)
	var got []int64
	for _, card := range v.Photos {
		got = append(got, card.ID)
		assert.True(t, card.Disabled)
	}
	assert.Equal(t, picked, got)
	require.NotNil(t, v.Participant.CompletedAt)

	photos, err := f.svc.Selections(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, photos, 10)

	draft, err := f.drafts.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestCompletedParticipantCannotToggleOrResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toggleAll(t, f.svc, "ABC123", storetest.PhotoIDs(1, 10))
	_, err := f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true})
	require.NoError(t, err)

	_, err = f.svc.Toggle(ctx, "ABC123", 11)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true, PhotoIDs: storetest.PhotoIDs(2, 11)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestSubmitValidatesSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	toggleAll(t, f.svc, "ABC123", storetest.PhotoIDs(1, 9))
	_, err := f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	dup := []int64{1, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, err = f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true, PhotoIDs: dup})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	unknown := append(storetest.PhotoIDs(1, 9), 99)
	_, err = f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true, PhotoIDs: unknown})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.Toggle(ctx, "ABC123", 99)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	rows, err := f.store.ListSelections(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmitWithExplicitPhotosPublishesChange(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := f.feed.Subscribe(ctx)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, "XYZ789", SubmitRequest{Confirm: true, PhotoIDs: storetest.PhotoIDs(6, 15)})
	require.NoError(t, err)

	select {
	case c := <-changes:
		assert.Equal(t, realtime.OpInsert, c.Op)
		assert.Equal(t, storetest.PhotoIDs(6, 15), c.PhotoIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("no ledger change published")
	}
}

type failingSubmitStore struct {
	store.Store
}

func (failingSubmitStore) SubmitSelections(context.Context, uuid.UUID, []int64, time.Time) error {
	return errors.New("connection reset by peer")
}

func TestSubmitWriteFailureReleasesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toggleAll(t, f.svc, "ABC123", storetest.PhotoIDs(1, 10))

	svc := NewService(failingSubmitStore{f.store}, f.drafts, nil, nil, nil, nil)
	_, err := svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true})
	assert.Equal(t, apperr.KindWrite, apperr.KindOf(err))

	v, err := f.svc.Resolve(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, StateReady, v.State, "user may retry")

	_, err = f.svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true})
	require.NoError(t, err)
}

func TestConcurrentSubmissionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tc := range []struct {
		code string
		ids  []int64
	}{
		{"ABC123", storetest.PhotoIDs(1, 10)},
		{"XYZ789", storetest.PhotoIDs(6, 15)},
	} {
		wg.Add(1)
		go func(i int, code string, ids []int64) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(ctx, code, SubmitRequest{Confirm: true, PhotoIDs: ids})
		}(i, tc.code, tc.ids)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	rows, err := f.store.ListSelections(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 20)

	a, err := f.svc.Selections(ctx, "ABC123")
	require.NoError(t, err)
	assert.Len(t, a, 10)
	assert.Equal(t, int64(1), a[0].ID)
}

func TestPhotoDetailShowsFullResolution(t *testing.T) {
	f := newFixture(t)
	card, err := f.svc.Photo(context.Background(), "ABC123", 4)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/full/4.jpg", card.DisplayURL)
	assert.Empty(t, card.Voters)

	_, err = f.svc.Photo(context.Background(), "ABC123", 404)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

type gatedSubmitStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func (g gatedSubmitStore) SubmitSelections(ctx context.Context, id uuid.UUID, ids []int64, at time.Time) error {
	close(g.entered)
	<-g.release
	return g.Store.SubmitSelections(ctx, id, ids, at)
}

func TestToggleDuringSubmitLeavesBallotUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	toggleAll(t, f.svc, "ABC123", storetest.PhotoIDs(1, 10))

	gate := gatedSubmitStore{Store: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(gate, f.drafts, nil, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, "ABC123", SubmitRequest{Confirm: true})
		done <- err
	}()
	<-gate.entered

	v, err := svc.Toggle(ctx, "ABC123", 11)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, v.State)
	assert.Equal(t, storetest.PhotoIDs(1, 10), v.SelectedIDs)

	close(gate.release)
	require.NoError(t, <-done)

	_, err = svc.Toggle(ctx, "ABC123", 11)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	p, err := f.store.ParticipantByCode(ctx, "ABC123")
	require.NoError(t, err)
	d, err := f.drafts.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, d, "no draft may outlive the submission")
}

// waitForWaiters blocks until n callers hold or wait on id's lock.
func waitForWaiters(t *testing.T, k *keyedMutex, id uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		k.mu.Lock()
		defer k.mu.Unlock()
		l, ok := k.locks[id]
		return ok && l.refs == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestQueuedCallsSeeCompletionCommittedWhileWaiting(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		call func(svc *Service) error
	}{
		{"toggle", func(svc *Service) error {
			_, err := svc.Toggle(ctx, "ABC123", 11)
			return err
		}},
		{"submit", func(svc *Service) error {
			_, err := svc.Submit(ctx, "ABC123", SubmitRequest{PhotoIDs: storetest.PhotoIDs(2, 11), Confirm: true})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			p, err := f.store.ParticipantByCode(ctx, "ABC123")
			require.NoError(t, err)

			unlock := f.svc.locks.Lock(p.ID)
			done := make(chan error, 1)
			go func() { done <- tc.call(f.svc) }()
			waitForWaiters(t, f.svc.locks, p.ID, 2)

			require.NoError(t, f.store.SubmitSelections(ctx, p.ID, storetest.PhotoIDs(1, 10), time.Now().UTC()))
			unlock()

			err = <-done
			assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

			d, err := f.drafts.Load(ctx, p.ID)
			require.NoError(t, err)
			assert.Nil(t, d)

			rows, err := f.store.SelectionsByParticipant(ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, rows, models.MaxSelections)
		})
	}
}
