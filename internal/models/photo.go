package models

// Photo is a candidate photo in the shared catalog. Immutable after seeding.
type Photo struct {
	ID           int64   `json:"id"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

// PreviewURL returns the thumbnail when present, otherwise the full-resolution URL.
func (p Photo) PreviewURL() string {
	if p.ThumbnailURL != nil && *p.ThumbnailURL != "" {
		return *p.ThumbnailURL
	}
	return p.URL
}
