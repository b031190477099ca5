// Package storetest builds seeded SQLite stores for tests.
package storetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/best-shot/backend/internal/models"
	"github.com/best-shot/backend/internal/store/sqlite"
)

// NewSQLite opens a fresh store in a temporary directory and closes it when the test ends.
func NewSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "bestshot.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedPhotos inserts photos 1..n with thumbnail URLs under baseURL.
func SeedPhotos(t *testing.T, s *sqlite.Store, n int, baseURL string) []models.Photo {
	t.Helper()
	ctx := context.Background()
	photos := make([]models.Photo, 0, n)
	for i := 1; i <= n; i++ {
		thumb := fmt.Sprintf("%s/thumb/%d.jpg", baseURL, i)
		p := models.Photo{ID: int64(i), URL: fmt.Sprintf("%s/full/%d.jpg", baseURL, i), ThumbnailURL: &thumb}
		if err := s.UpsertPhoto(ctx, p); err != nil {
			t.Fatalf("seed photo %d: %v", i, err)
		}
		photos = append(photos, p)
	}
	return photos
}

// SeedParticipant inserts one participant.
func SeedParticipant(t *testing.T, s *sqlite.Store, name, code string) *models.Participant {
	t.Helper()
	p := &models.Participant{Name: name, Code: code}
	if err := s.UpsertParticipant(context.Background(), p); err != nil {
		t.Fatalf("seed participant %s: %v", code, err)
	}
	return p
}

// PhotoIDs returns ids from..to inclusive.
func PhotoIDs(from, to int64) []int64 {
	ids := make([]int64, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}
