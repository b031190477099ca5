// Package admin backs the dashboard: the participant table, resets and the
// ledger consistency audit.
package admin

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

// DraftDeleter drops a participant's unsubmitted draft (voting.DraftStore).
type DraftDeleter interface {
	Delete(ctx context.Context, participantID uuid.UUID) error
}

// ParticipantRow is one line of the dashboard table.
type ParticipantRow struct {
	ID            uuid.UUID                `json:"id"`
	Name          string                   `json:"name"`
	DisplayName   string                   `json:"display_name"`
	Code          string                   `json:"code"`
	Status        models.ParticipantStatus `json:"status"`
	SelectedCount int                      `json:"selected_count"`
	IsCompleted   bool                     `json:"is_completed"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	VoteURL       string                   `json:"vote_url"`
}

// Issue kinds reported by Audit.
const (
	IssueIncompleteLedger = "completed_without_full_ledger"
	IssueOrphanedVotes    = "votes_without_completion"
)

// AuditIssue is a participant whose flags disagree with the ledger.
type AuditIssue struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	IsCompleted   bool      `json:"is_completed"`
	LedgerRows    int       `json:"ledger_rows"`
}

// Service implements the admin operations.
type Service struct {
	store   store.Store
	drafts  DraftDeleter
	feed    realtime.Publisher
	metrics *metrics.Metrics
	baseURL string
	logger  *zap.Logger
}

// NewService creates the admin service. drafts, feed and m may be nil.
func NewService(st store.Store, drafts DraftDeleter, feed realtime.Publisher, m *metrics.Metrics, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, drafts: drafts, feed: feed, metrics: m, baseURL: baseURL, logger: logger}
}

// VoteURL is the personalized link handed to a participant.
func (s *Service) VoteURL(code string) string {
	return s.baseURL + "/vote/" + code
}

// Participants returns the dashboard table ordered by creation time.
func (s *Service) Participants(ctx context.Context) ([]ParticipantRow, error) {
	list, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, apperr.Fetch("failed to load participants", err)
	}
	rows := make([]ParticipantRow, 0, len(list))
	for i := range list {
		p := &list[i]
		rows = append(rows, ParticipantRow{
			ID:            p.ID,
			Name:          p.Name,
			DisplayName:   p.DisplayName(),
			Code:          p.Code,
			Status:        p.Status(),
			SelectedCount: p.SelectedCount,
			IsCompleted:   p.IsCompleted,
			CompletedAt:   p.CompletedAt,
			CreatedAt:     p.CreatedAt,
			VoteURL:       s.VoteURL(p.Code),
		})
	}
	return rows, nil
}

// Reset deletes the participant's ledger rows and clears completion. confirm
// must be true.
func (s *Service) Reset(ctx context.Context, id uuid.UUID, confirm bool) error {
	if !confirm {
		return apperr.Invalid("reset must be confirmed")
	}
	err := s.store.ResetParticipant(ctx, id)
	s.metrics.ObserveReset(err)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("participant not found")
		}
		return apperr.Write("failed to reset participant", err)
	}
	if s.drafts != nil {
		if err := s.drafts.Delete(ctx, id); err != nil {
			s.logger.Warn("delete draft on reset", zap.String("participant_id", id.String()), zap.Error(err))
		}
	}
	if s.feed != nil {
		change := realtime.Change{Op: realtime.OpDelete, ParticipantID: id, At: time.Now().UTC()}
		if err := s.feed.Publish(context.WithoutCancel(ctx), change); err != nil {
			s.logger.Warn("publish ledger change", zap.String("op", change.Op), zap.Error(err))
		}
	}
	s.logger.Info("participant reset", zap.String("participant_id", id.String()))
	return nil
}

// Audit lists participants whose completion flag and ledger rows disagree.
func (s *Service) Audit(ctx context.Context) ([]AuditIssue, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, apperr.Fetch("failed to load participants", err)
	}
	selections, err := s.store.ListSelections(ctx)
	if err != nil {
		return nil, apperr.Fetch("failed to load selections", err)
	}
	rows := make(map[uuid.UUID]int, len(participants))
	for _, sel := range selections {
		rows[sel.ParticipantID]++
	}
	issues := []AuditIssue{}
	for _, p := range participants {
		n := rows[p.ID]
		var kind string
		switch {
		case p.IsCompleted && n != models.MaxSelections:
			kind = IssueIncompleteLedger
		case !p.IsCompleted && n > 0:
			kind = IssueOrphanedVotes
		default:
			continue
		}
		issues = append(issues, AuditIssue{
			ParticipantID: p.ID,
			Name:          p.DisplayName(),
			Kind:          kind,
			IsCompleted:   p.IsCompleted,
			LedgerRows:    n,
		})
	}
	return issues, nil
}
