// Package postgres implements store.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/store"
)

var _ store.Store = (*Store)(nil)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Store persists participants, photos and selections in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an established pool. Schema migrations are run by database.Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const participantColumns = `id, name, code, selected_count, is_completed, completed_at, created_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.SelectedCount, &p.IsCompleted, &p.CompletedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ParticipantByCode returns the participant whose code matches exactly.
func (s *Store) ParticipantByCode(ctx context.Context, code string) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE code = $1`
	return scanParticipant(s.pool.QueryRow(ctx, q, code))
}

// ParticipantByID returns a participant by ID.
func (s *Store) ParticipantByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return scanParticipant(s.pool.QueryRow(ctx, q, id))
}

// ListParticipants returns all participants, oldest first.
func (s *Store) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM participants ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// UpsertParticipant inserts a participant or renames the one holding the same code.
func (s *Store) UpsertParticipant(ctx context.Context, p *models.Participant) error {
	const q = `INSERT INTO participants (id, name, code) VALUES (gen_random_uuid(), $1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING ` + participantColumns
	got, err := scanParticipant(s.pool.QueryRow(ctx, q, p.Name, p.Code))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// SetSelectedCount updates the progress counter of an incomplete participant.
func (s *Store) SetSelectedCount(ctx context.Context, id uuid.UUID, n int) error {
	const q = `UPDATE participants SET selected_count = $1 WHERE id = $2 AND NOT is_completed`
	_, err := s.pool.Exec(ctx, q, n, id)
	return err
}

// ListPhotos returns the catalog ordered by id.
func (s *Store) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	const q = `SELECT id, url, thumbnail_url FROM photos ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.URL, &p.ThumbnailURL); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpsertPhoto inserts or replaces a catalog entry.
func (s *Store) UpsertPhoto(ctx context.Context, p models.Photo) error {
	const q = `INSERT INTO photos (id, url, thumbnail_url) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET url = EXCLUDED.url, thumbnail_url = EXCLUDED.thumbnail_url`
	_, err := s.pool.Exec(ctx, q, p.ID, p.URL, p.ThumbnailURL)
	return err
}

func (s *Store) querySelections(ctx context.Context, q string, args ...any) ([]models.Selection, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Selection
	for rows.Next() {
		var sel models.Selection
		if err := rows.Scan(&sel.ParticipantID, &sel.PhotoID, &sel.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, sel)
	}
	return list, rows.Err()
}

// ListSelections returns the whole ledger.
func (s *Store) ListSelections(ctx context.Context) ([]models.Selection, error) {
	const q = `SELECT participant_id, photo_id, created_at FROM selections ORDER BY created_at ASC, participant_id, photo_id`
	return s.querySelections(ctx, q)
}

// SelectionsByParticipant returns one participant's ledger rows.
func (s *Store) SelectionsByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Selection, error) {
	const q = `SELECT participant_id, photo_id, created_at FROM selections WHERE participant_id = $1 ORDER BY photo_id`
	return s.querySelections(ctx, q, participantID)
}

// ListVotes returns ledger rows joined with voter names.
func (s *Store) ListVotes(ctx context.Context) ([]models.Vote, error) {
	const q = `SELECT s.photo_id, s.participant_id, p.name, s.created_at
		FROM selections s INNER JOIN participants p ON p.id = s.participant_id
		ORDER BY s.created_at ASC, p.name ASC, s.photo_id ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.PhotoID, &v.ParticipantID, &v.VoterName, &v.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// SubmitSelections writes the participant's ballot and completion flags atomically.
// Rows left behind by an earlier incomplete write are replaced.
func (s *Store) SubmitSelections(ctx context.Context, participantID uuid.UUID, photoIDs []int64, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var completed bool
	err = tx.QueryRow(ctx, `SELECT is_completed FROM participants WHERE id = $1 FOR UPDATE`, participantID).Scan(&completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("lock participant: %w", err)
	}
	if completed {
		return store.ErrAlreadyCompleted
	}

	if _, err := tx.Exec(ctx, `DELETE FROM selections WHERE participant_id = $1`, participantID); err != nil {
		return fmt.Errorf("clear stale selections: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"selections"},
		[]string{"participant_id", "photo_id", "created_at"},
		pgx.CopyFromSlice(len(photoIDs), func(i int) ([]any, error) {
			return []any{participantID, photoIDs[i], at}, nil
		}),
	)
	if err != nil {
		return translate(err, "insert selections")
	}

	const update = `UPDATE participants SET selected_count = $1, is_completed = TRUE, completed_at = $2 WHERE id = $3`
	if _, err := tx.Exec(ctx, update, len(photoIDs), at, participantID); err != nil {
		return fmt.Errorf("complete participant: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ResetParticipant deletes the ledger rows first, then clears the flags, in one transaction.
func (s *Store) ResetParticipant(ctx context.Context, participantID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM selections WHERE participant_id = $1`, participantID); err != nil {
		return fmt.Errorf("delete selections: %w", err)
	}
	const reset = `UPDATE participants SET selected_count = 0, is_completed = FALSE, completed_at = NULL WHERE id = $1`
	tag, err := tx.Exec(ctx, reset, participantID)
	if err != nil {
		return fmt.Errorf("reset participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, store.ErrUnknownPhoto)
		case pgUniqueViolation:
			return fmt.Errorf("%s: duplicate photo: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
