// Package sqlite implements store.Store on an embedded SQLite database for
// single-instance deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store persists participants, photos and selections in SQLite.
// Timestamps are stored as unix microseconds.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if needed) the database at path and runs migrations.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers; transactions never block on each other.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

type scanner interface {
	Scan(dest ...any) error
}

const participantColumns = `id, name, code, selected_count, is_completed, completed_at, created_at`

func scanParticipant(row scanner) (*models.Participant, error) {
	var (
		p           models.Participant
		id          string
		completedAt sql.NullInt64
		createdAt   int64
	)
	if err := row.Scan(&id, &p.Name, &p.Code, &p.SelectedCount, &p.IsCompleted, &completedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse participant id: %w", err)
	}
	p.ID = parsed
	p.CreatedAt = fromMicros(createdAt)
	if completedAt.Valid {
		t := fromMicros(completedAt.Int64)
		p.CompletedAt = &t
	}
	return &p, nil
}

// ParticipantByCode returns the participant whose code matches exactly.
func (s *Store) ParticipantByCode(ctx context.Context, code string) (*models.Participant, error) {
	// SQLite '=' on TEXT is case-sensitive with the default BINARY collation.
	q := `SELECT ` + participantColumns + ` FROM participants WHERE code = ?`
	return scanParticipant(s.db.QueryRowContext(ctx, q, code))
}

// ParticipantByID returns a participant by ID.
func (s *Store) ParticipantByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participants WHERE id = ?`
	return scanParticipant(s.db.QueryRowContext(ctx, q, id.String()))
}

// ListParticipants returns all participants, oldest first.
func (s *Store) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participants ORDER BY created_at ASC, rowid ASC`
	rows, err := s.db.QueryContext(ctx, q)
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
	const q = `INSERT INTO participants (id, name, code, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name`
	if _, err := s.db.ExecContext(ctx, q, uuid.New().String(), p.Name, p.Code, toMicros(s.now())); err != nil {
		return err
	}
	got, err := s.ParticipantByCode(ctx, p.Code)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// SetSelectedCount updates the progress counter of an incomplete participant.
func (s *Store) SetSelectedCount(ctx context.Context, id uuid.UUID, n int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE participants SET selected_count = ? WHERE id = ? AND is_completed = 0`, n, id.String())
	return err
}

// ListPhotos returns the catalog ordered by id.
func (s *Store) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, url, thumbnail_url FROM photos ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Photo
	for rows.Next() {
		var (
			p     models.Photo
			thumb sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.URL, &thumb); err != nil {
			return nil, err
		}
		if thumb.Valid {
			v := thumb.String
			p.ThumbnailURL = &v
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpsertPhoto inserts or replaces a catalog entry.
func (s *Store) UpsertPhoto(ctx context.Context, p models.Photo) error {
	const q = `INSERT INTO photos (id, url, thumbnail_url) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET url = excluded.url, thumbnail_url = excluded.thumbnail_url`
	_, err := s.db.ExecContext(ctx, q, p.ID, p.URL, p.ThumbnailURL)
	return err
}

func (s *Store) querySelections(ctx context.Context, q string, args ...any) ([]models.Selection, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Selection
	for rows.Next() {
		var (
			sel       models.Selection
			pid       string
			createdAt int64
		)
		if err := rows.Scan(&pid, &sel.PhotoID, &createdAt); err != nil {
			return nil, err
		}
		if sel.ParticipantID, err = uuid.Parse(pid); err != nil {
			return nil, fmt.Errorf("parse participant id: %w", err)
		}
		sel.CreatedAt = fromMicros(createdAt)
		list = append(list, sel)
	}
	return list, rows.Err()
}

// ListSelections returns the whole ledger.
func (s *Store) ListSelections(ctx context.Context) ([]models.Selection, error) {
	return s.querySelections(ctx, `SELECT participant_id, photo_id, created_at FROM selections ORDER BY created_at ASC, participant_id, photo_id`)
}

// SelectionsByParticipant returns one participant's ledger rows.
func (s *Store) SelectionsByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Selection, error) {
	return s.querySelections(ctx, `SELECT participant_id, photo_id, created_at FROM selections WHERE participant_id = ? ORDER BY photo_id`, participantID.String())
}

// ListVotes returns ledger rows joined with voter names.
func (s *Store) ListVotes(ctx context.Context) ([]models.Vote, error) {
	const q = `SELECT s.photo_id, s.participant_id, p.name, s.created_at
		FROM selections s INNER JOIN participants p ON p.id = s.participant_id
		ORDER BY s.created_at ASC, p.name ASC, s.photo_id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Vote
	for rows.Next() {
		var (
			v         models.Vote
			pid       string
			createdAt int64
		)
		if err := rows.Scan(&v.PhotoID, &pid, &v.VoterName, &createdAt); err != nil {
			return nil, err
		}
		if v.ParticipantID, err = uuid.Parse(pid); err != nil {
			return nil, fmt.Errorf("parse participant id: %w", err)
		}
		v.CreatedAt = fromMicros(createdAt)
		list = append(list, v)
	}
	return list, rows.Err()
}

// SubmitSelections writes the participant's ballot and completion flags atomically.
// Rows left behind by an earlier incomplete write are replaced.
func (s *Store) SubmitSelections(ctx context.Context, participantID uuid.UUID, photoIDs []int64, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := participantID.String()
	var completed bool
	if err := tx.QueryRowContext(ctx, `SELECT is_completed FROM participants WHERE id = ?`, id).Scan(&completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("load participant: %w", err)
	}
	if completed {
		return store.ErrAlreadyCompleted
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE participant_id = ?`, id); err != nil {
		return fmt.Errorf("clear stale selections: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO selections (participant_id, photo_id, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	ts := toMicros(at)
	for _, photoID := range photoIDs {
		if _, err := stmt.ExecContext(ctx, id, photoID, ts); err != nil {
			return translate(err, "insert selections")
		}
	}

	const update = `UPDATE participants SET selected_count = ?, is_completed = 1, completed_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, len(photoIDs), ts, id); err != nil {
		return fmt.Errorf("complete participant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ResetParticipant deletes the ledger rows first, then clears the flags, in one transaction.
func (s *Store) ResetParticipant(ctx context.Context, participantID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := participantID.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE participant_id = ?`, id); err != nil {
		return fmt.Errorf("delete selections: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE participants SET selected_count = 0, is_completed = 0, completed_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reset participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func translate(err error, op string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", op, store.ErrUnknownPhoto)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: duplicate photo: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
