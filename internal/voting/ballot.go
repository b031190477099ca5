// Package voting implements the participant vote flow: resolving an access
// code, toggling photos into a ballot and submitting it once.
package voting

import (
	"errors"

	"github.com/best-shot/backend/internal/models"
)

// State is the position of a participant in the vote flow.
type State string

const (
	StateNotStarted State = "not_started"
	StateSelecting  State = "selecting"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
)

var (
	// ErrBallotClosed is returned for any change to a completed ballot.
	ErrBallotClosed = errors.New("ballot already submitted")
	// ErrNotReady is returned when submitting without exactly MaxSelections photos.
	ErrNotReady = errors.New("ballot needs exactly 10 photos")
	// ErrSubmitting is returned when a submission is already in flight.
	ErrSubmitting = errors.New("submission already in progress")
)

// Ballot is a participant's selection. The zero value is a fresh, empty ballot.
type Ballot struct {
	selected   []int64
	touched    bool
	submitting bool
	completed  bool
}

// NewBallot restores an in-progress ballot from a saved draft.
func NewBallot(photoIDs []int64, submitting bool) *Ballot {
	b := &Ballot{submitting: submitting, touched: len(photoIDs) > 0}
	for _, id := range photoIDs {
		if !b.Has(id) && len(b.selected) < models.MaxSelections {
			b.selected = append(b.selected, id)
		}
	}
	return b
}

// CompletedBallot is the read-only ballot of a participant who already submitted.
func CompletedBallot(photoIDs []int64) *Ballot {
	return &Ballot{selected: append([]int64(nil), photoIDs...), touched: true, completed: true}
}

// State reports where the ballot is in the flow.
func (b *Ballot) State() State {
	switch {
	case b.completed:
		return StateCompleted
	case b.submitting:
		return StateSubmitting
	case len(b.selected) == models.MaxSelections:
		return StateReady
	case b.touched:
		return StateSelecting
	default:
		return StateNotStarted
	}
}

// Has reports whether photoID is selected.
func (b *Ballot) Has(photoID int64) bool {
	for _, id := range b.selected {
		if id == photoID {
			return true
		}
	}
	return false
}

// Count is the number of selected photos.
func (b *Ballot) Count() int { return len(b.selected) }

// Selected returns the selected photo ids in selection order.
func (b *Ballot) Selected() []int64 {
	return append([]int64(nil), b.selected...)
}

// Toggle removes photoID when selected and adds it when there is room.
// It reports whether the selection changed. Adding at capacity and any toggle
// during a submission are no-ops.
func (b *Ballot) Toggle(photoID int64) (bool, error) {
	if b.completed {
		return false, ErrBallotClosed
	}
	if b.submitting {
		return false, nil
	}
	b.touched = true
	for i, id := range b.selected {
		if id == photoID {
			b.selected = append(b.selected[:i], b.selected[i+1:]...)
			return true, nil
		}
	}
	if len(b.selected) >= models.MaxSelections {
		return false, nil
	}
	b.selected = append(b.selected, photoID)
	return true, nil
}

// CanSubmit reports whether the ballot is ready.
func (b *Ballot) CanSubmit() bool { return b.State() == StateReady }

// BeginSubmit moves a ready ballot to submitting.
func (b *Ballot) BeginSubmit() error {
	switch b.State() {
	case StateCompleted:
		return ErrBallotClosed
	case StateSubmitting:
		return ErrSubmitting
	case StateReady:
		b.submitting = true
		return nil
	default:
		return ErrNotReady
	}
}

// AbortSubmit returns a failed submission to ready so the user may retry.
func (b *Ballot) AbortSubmit() { b.submitting = false }

// Complete marks the ballot submitted. It is terminal.
func (b *Ballot) Complete() {
	b.submitting = false
	b.completed = true
}
