package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSelections is the number of photos every participant must pick.
const MaxSelections = 10

// ParticipantStatus is the admin-facing progress of a participant.
type ParticipantStatus string

const (
	StatusNotStarted ParticipantStatus = "not_started"
	StatusInProgress ParticipantStatus = "in_progress"
	StatusCompleted  ParticipantStatus = "completed"
)

// Participant is a voter identified by a unique access code.
type Participant struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Code          string     `json:"code"`
	SelectedCount int        `json:"selected_count"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// honorific is the suffix the seed data appends to names ("홍길동 님").
const honorific = "님"

// DisplayName returns the name without a trailing honorific.
func (p *Participant) DisplayName() string {
	return DisplayName(p.Name)
}

// DisplayName strips a trailing " 님" or "님" from name.
func DisplayName(name string) string {
	if !strings.HasSuffix(name, honorific) {
		return name
	}
	trimmed := strings.TrimSuffix(name, honorific)
	return strings.TrimSuffix(trimmed, " ")
}

// Status derives the three-way progress shown on the dashboard.
func (p *Participant) Status() ParticipantStatus {
	switch {
	case p.IsCompleted:
		return StatusCompleted
	case p.SelectedCount > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}
