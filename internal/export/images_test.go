package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/best-shot/backend/internal/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	for x := 0; x < 4; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// imageServer serves a PNG for /thumb/N.jpg with N odd, 404 otherwise, and
// plain text for /text/*.
func imageServer(t *testing.T, inFlight *atomic.Int32, peak *atomic.Int32) *httptest.Server {
	t.Helper()
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inFlight != nil {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
		}
		if strings.HasPrefix(r.URL.Path, "/text/") {
			_, _ = w.Write([]byte("not an image"))
			return
		}
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/thumb/%d.jpg", &id); err != nil || id%2 == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg") // wrong on purpose; content is sniffed
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rankedWithThumbs(base string, n int) []models.RankedPhoto {
	out := make([]models.RankedPhoto, n)
	for i := range out {
		id := int64(i + 1)
		thumb := fmt.Sprintf("%s/thumb/%d.jpg", base, id)
		out[i] = models.RankedPhoto{Photo: models.Photo{ID: id, URL: base + "/full", ThumbnailURL: &thumb}, Rank: i + 1}
	}
	return out
}

func TestFetchAllWaitsForEveryImage(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := imageServer(t, &inFlight, &peak)

	f := NewFetcher(srv.Client(), 2, 5*time.Second, 0)
	images := f.FetchAll(context.Background(), rankedWithThumbs(srv.URL, 6))

	require.Len(t, images, 6)
	for id := int64(1); id <= 6; id++ {
		img := images[id]
		if id%2 == 1 {
			require.NoError(t, img.Err, "photo %d", id)
			assert.Equal(t, "PNG", img.Type)
			assert.NotEmpty(t, img.Data)
		} else {
			assert.Error(t, img.Err, "photo %d", id)
		}
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestFetchRejectsNonImage(t *testing.T) {
	srv := imageServer(t, nil, nil)
	f := NewFetcher(nil, 1, time.Second, 0)
	images := f.FetchAll(context.Background(), []models.RankedPhoto{{Photo: models.Photo{ID: 1, URL: srv.URL + "/text/1"}}})
	assert.ErrorContains(t, images[1].Err, "unsupported image type")
}

func TestFetchAllStopsAtBudget(t *testing.T) {
	stall := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-stall:
		}
	}))
	defer srv.Close()
	defer close(stall)

	f := NewFetcher(srv.Client(), 1, 5*time.Second, 200*time.Millisecond)
	start := time.Now()
	images := f.FetchAll(context.Background(), rankedWithThumbs(srv.URL, 3))

	assert.Less(t, time.Since(start), 2*time.Second, "three 5s fetches must not run back to back")
	require.Len(t, images, 3)
	for id := int64(1); id <= 3; id++ {
		assert.True(t, errors.Is(images[id].Err, context.DeadlineExceeded), "photo %d: %v", id, images[id].Err)
	}
}
