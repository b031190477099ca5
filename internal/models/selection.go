package models

import (
	"time"

	"github.com/google/uuid"
)

// Selection is one ledger row: participant picked photo.
type Selection struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	PhotoID       int64     `json:"photo_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Vote is a ledger row joined with the voter's name, as read by the live tally.
type Vote struct {
	PhotoID       int64     `json:"photo_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	VoterName     string    `json:"voter_name"`
	CreatedAt     time.Time `json:"created_at"`
}
