package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"홍길동 님", "홍길동"},
		{"홍길동님", "홍길동"},
		{"홍길동", "홍길동"},
		{"Alice", "Alice"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DisplayName(tc.in), "input %q", tc.in)
	}
}

func TestParticipantStatus(t *testing.T) {
	now := time.Now()
	assert.Equal(t, StatusNotStarted, (&Participant{}).Status())
	assert.Equal(t, StatusInProgress, (&Participant{SelectedCount: 3}).Status())
	assert.Equal(t, StatusCompleted, (&Participant{SelectedCount: 10, IsCompleted: true, CompletedAt: &now}).Status())
}

func TestPhotoPreviewURL(t *testing.T) {
	thumb := "https://cdn.example.com/t/1.jpg"
	empty := ""
	assert.Equal(t, thumb, Photo{URL: "https://cdn.example.com/1.jpg", ThumbnailURL: &thumb}.PreviewURL())
	assert.Equal(t, "https://cdn.example.com/1.jpg", Photo{URL: "https://cdn.example.com/1.jpg", ThumbnailURL: &empty}.PreviewURL())
	assert.Equal(t, "https://cdn.example.com/1.jpg", Photo{URL: "https://cdn.example.com/1.jpg"}.PreviewURL())
}
