// Package export ranks photos by votes and renders the result PDF.
package export

import (
	"sort"

	"github.com/best-shot/backend/internal/models"
)

// Rank counts ledger rows per photo and orders the catalog by count, highest
// first. Photos with equal counts keep their catalog order.
func Rank(photos []models.Photo, selections []models.Selection) []models.RankedPhoto {
	counts := make(map[int64]int, len(photos))
	for _, s := range selections {
		counts[s.PhotoID]++
	}
	ranked := make([]models.RankedPhoto, len(photos))
	for i, p := range photos {
		ranked[i] = models.RankedPhoto{Photo: p, Count: counts[p.ID]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Top returns the first n ranked photos.
func Top(ranked []models.RankedPhoto, n int) []models.RankedPhoto {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
