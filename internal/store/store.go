// Package store defines the persistence contract for participants, the photo
// catalog and the selection ledger. Implementations live in the postgres and
// sqlite subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/best-shot/backend/internal/models"
)

var (
	// ErrNotFound is returned when a participant lookup has no match.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned when a completed participant submits again.
	ErrAlreadyCompleted = errors.New("participant already completed")
	// ErrUnknownPhoto is returned when a selection references a photo outside the catalog.
	ErrUnknownPhoto = errors.New("unknown photo")
)

// Store is the full persistence surface used by the application.
type Store interface {
	// ParticipantByCode resolves a participant by exact, case-sensitive code.
	ParticipantByCode(ctx context.Context, code string) (*models.Participant, error)
	ParticipantByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	// ListParticipants returns participants ordered by creation time ascending.
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	// UpsertParticipant inserts a participant or updates its name by code. ID and
	// CreatedAt are populated from the stored row.
	UpsertParticipant(ctx context.Context, p *models.Participant) error
	// SetSelectedCount mirrors an in-progress draft size onto an incomplete participant.
	SetSelectedCount(ctx context.Context, id uuid.UUID, n int) error

	// ListPhotos returns the catalog ordered by id.
	ListPhotos(ctx context.Context) ([]models.Photo, error)
	UpsertPhoto(ctx context.Context, p models.Photo) error

	// ListSelections returns every ledger row.
	ListSelections(ctx context.Context) ([]models.Selection, error)
	SelectionsByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Selection, error)
	// ListVotes returns ledger rows joined with voter names ordered by
	// (created_at, voter name, photo id).
	ListVotes(ctx context.Context) ([]models.Vote, error)

	// SubmitSelections inserts the ledger rows and marks the participant completed
	// in a single transaction.
	SubmitSelections(ctx context.Context, participantID uuid.UUID, photoIDs []int64, at time.Time) error
	// ResetParticipant deletes the participant's ledger rows and clears its
	// completion flags in a single transaction.
	ResetParticipant(ctx context.Context, participantID uuid.UUID) error

	Close() error
}
