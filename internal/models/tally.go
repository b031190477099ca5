package models

import "time"

// TallySnapshot is one immutable version of the per-photo voter lists.
// Voter names are display names ordered by vote time, then name.
type TallySnapshot struct {
	Version     uint64             `json:"version"`
	Voters      map[int64][]string `json:"voters"`
	Counts      map[int64]int      `json:"counts"`
	RefreshedAt time.Time          `json:"refreshed_at"`
}

// VotersFor returns the display names of everyone who picked photoID.
func (s *TallySnapshot) VotersFor(photoID int64) []string {
	if s == nil {
		return nil
	}
	return s.Voters[photoID]
}

// Count returns how many participants picked photoID.
func (s *TallySnapshot) Count(photoID int64) int {
	return len(s.VotersFor(photoID))
}
