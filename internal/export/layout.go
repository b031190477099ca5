package export

import (
	"fmt"
	"time"

	"github.com/best-shot/backend/internal/models"
)

// PhotosPerPage is the number of photo cards on each photo page.
const PhotosPerPage = 4

// RosterRow is one participant line on the title page.
type RosterRow struct {
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PhotoPage is one page of ranked photo cards.
type PhotoPage struct {
	Number  int                  `json:"number"`
	Heading string               `json:"heading"`
	Photos  []models.RankedPhoto `json:"photos"`
}

// Layout is the paginated export document: a title and roster page, then photo pages.
type Layout struct {
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	GeneratedAt time.Time   `json:"generated_at"`
	Roster      []RosterRow `json:"roster"`
	PhotoPages  []PhotoPage `json:"photo_pages"`
}

// NewLayout paginates top into pages of PhotosPerPage. topN is the requested
// ranking size shown in headings.
func NewLayout(title, subtitle string, topN int, participants []models.Participant, top []models.RankedPhoto, at time.Time) Layout {
	l := Layout{Title: title, Subtitle: subtitle, GeneratedAt: at}
	for _, p := range participants {
		l.Roster = append(l.Roster, RosterRow{
			Name:        p.DisplayName(),
			Completed:   p.IsCompleted,
			CompletedAt: p.CompletedAt,
		})
	}
	for start := 0; start < len(top); start += PhotosPerPage {
		end := start + PhotosPerPage
		if end > len(top) {
			end = len(top)
		}
		l.PhotoPages = append(l.PhotoPages, PhotoPage{
			Number:  len(l.PhotoPages) + 2,
			Heading: fmt.Sprintf("Top %d Photos (%d ~ %d)", topN, start+1, end),
			Photos:  top[start:end],
		})
	}
	return l
}

// TotalPages is the roster page plus one page per PhotosPerPage photos.
func (l Layout) TotalPages() int { return len(l.PhotoPages) + 1 }

// Footer returns the page footer text.
func (l Layout) Footer(page int) string {
	return fmt.Sprintf("Page %d / %d", page, l.TotalPages())
}
