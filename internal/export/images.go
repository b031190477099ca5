package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/best-shot/backend/internal/models"
)

// maxImageBytes caps a single downloaded photo.
const maxImageBytes = 20 << 20

// Image is a fetched photo ready for the renderer. Err is set when the photo
// could not be loaded and a placeholder must be drawn instead.
type Image struct {
	PhotoID int64
	Data    []byte
	Type    string // JPG, PNG or GIF
	Err     error
}

// Fetcher downloads photo images with bounded concurrency. timeout bounds one
// download; budget bounds a whole FetchAll.
type Fetcher struct {
	client      *http.Client
	concurrency int
	timeout     time.Duration
	budget      time.Duration
}

// NewFetcher creates a fetcher. client may be nil; a zero timeout or budget
// leaves that bound off.
func NewFetcher(client *http.Client, concurrency int, timeout, budget time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{client: client, concurrency: concurrency, timeout: timeout, budget: budget}
}

// FetchAll loads the preview image of every photo and returns once each fetch
// has either loaded or failed. Photos still pending when the budget runs out
// fail with context.DeadlineExceeded.
func (f *Fetcher) FetchAll(ctx context.Context, photos []models.RankedPhoto) map[int64]Image {
	if f.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.budget)
		defer cancel()
	}
	results := make([]Image, len(photos))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, p := range photos {
		i, p := i, p
		g.Go(func() error {
			img := Image{PhotoID: p.ID}
			img.Data, img.Type, img.Err = f.fetch(ctx, p.PreviewURL())
			results[i] = img
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int64]Image, len(results))
	for _, img := range results {
		out[img.PhotoID] = img
	}
	return out
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	typ, err := imageType(data)
	if err != nil {
		return nil, "", err
	}
	return data, typ, nil
}

// imageType sniffs the format from the content, not the server's header.
func imageType(data []byte) (string, error) {
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg":
		return "JPG", nil
	case "image/png":
		return "PNG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", ct)
	}
}
