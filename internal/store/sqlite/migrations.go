package sqlite

import (
	"database/sql"
	"fmt"
)

// schema mirrors pkg/database/migrations for SQLite. Participants must exist
// before selections because of the foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    selected_count INTEGER NOT NULL DEFAULT 0 CHECK (selected_count BETWEEN 0 AND 10),
    is_completed INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER,
    created_at INTEGER NOT NULL,
    CHECK (is_completed = 0 OR (selected_count = 10 AND completed_at IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS photos (
    id INTEGER PRIMARY KEY,
    url TEXT NOT NULL,
    thumbnail_url TEXT
);

CREATE TABLE IF NOT EXISTS selections (
    participant_id TEXT NOT NULL,
    photo_id INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (participant_id, photo_id),
    FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
    FOREIGN KEY (photo_id) REFERENCES photos(id)
);

CREATE INDEX IF NOT EXISTS idx_selections_photo_id ON selections(photo_id);
CREATE INDEX IF NOT EXISTS idx_participants_created_at ON participants(created_at);
`

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
