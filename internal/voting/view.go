package voting

import (
	"time"

	"github.com/google/uuid"

	"github.com/best-shot/backend/internal/models"
)

// PhotoCard is one grid cell: the photo, its selection state and live voters.
type PhotoCard struct {
	ID           int64    `json:"id"`
	URL          string   `json:"url"`
	ThumbnailURL *string  `json:"thumbnail_url,omitempty"`
	DisplayURL   string   `json:"display_url"`
	Selected     bool     `json:"selected"`
	Disabled     bool     `json:"disabled"`
	VoteCount    int      `json:"vote_count"`
	Voters       []string `json:"voters"`
}

// ParticipantView is the participant as shown to themselves.
type ParticipantView struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// View is everything the vote page renders.
type View struct {
	Participant  ParticipantView `json:"participant"`
	State        State           `json:"state"`
	SelectedIDs  []int64         `json:"selected_ids"`
	Count        int             `json:"count"`
	Max          int             `json:"max"`
	CanSubmit    bool            `json:"can_submit"`
	TallyVersion uint64          `json:"tally_version"`
	Photos       []PhotoCard     `json:"photos"`
}

func newCard(p models.Photo, tally *models.TallySnapshot) PhotoCard {
	voters := tally.VotersFor(p.ID)
	if voters == nil {
		voters = []string{}
	}
	return PhotoCard{
		ID:           p.ID,
		URL:          p.URL,
		ThumbnailURL: p.ThumbnailURL,
		DisplayURL:   p.PreviewURL(),
		VoteCount:    len(voters),
		Voters:       voters,
	}
}

// buildView renders the selection grid, or for a completed ballot only the
// submitted photos in catalog order.
func buildView(p *models.Participant, b *Ballot, catalog []models.Photo, tally *models.TallySnapshot) *View {
	state := b.State()
	v := &View{
		Participant: ParticipantView{ID: p.ID, Name: p.DisplayName(), CompletedAt: p.CompletedAt},
		State:       state,
		SelectedIDs: b.Selected(),
		Count:       b.Count(),
		Max:         models.MaxSelections,
		CanSubmit:   b.CanSubmit(),
		Photos:      make([]PhotoCard, 0, len(catalog)),
	}
	if tally != nil {
		v.TallyVersion = tally.Version
	}
	full := b.Count() >= models.MaxSelections
	locked := state == StateSubmitting || state == StateCompleted
	for _, photo := range catalog {
		selected := b.Has(photo.ID)
		if state == StateCompleted && !selected {
			continue
		}
		card := newCard(photo, tally)
		card.Selected = selected
		card.Disabled = locked || (full && !selected)
		v.Photos = append(v.Photos, card)
	}
	return v
}
