package export

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/best-shot/backend/internal/apperr"
	"github.com/best-shot/backend/internal/metrics"
	"github.com/best-shot/backend/internal/models"
)

// Source reads everything an export needs.
type Source interface {
	ListPhotos(ctx context.Context) ([]models.Photo, error)
	ListSelections(ctx context.Context) ([]models.Selection, error)
	ListParticipants(ctx context.Context) ([]models.Participant, error)
}

// Options configures the document.
type Options struct {
	Title    string
	Subtitle string
	TopN     int
}

// Result is a rendered export.
type Result struct {
	PDF           []byte
	Layout        Layout
	MissingImages []int64
}

// Service builds result PDFs. Only one export runs at a time per process.
type Service struct {
	src      Source
	fetcher  *Fetcher
	renderer *Renderer
	opts     Options
	metrics  *metrics.Metrics
	logger   *zap.Logger
	running  atomic.Bool
	now      func() time.Time
}

// NewService creates an export service. m may be nil.
func NewService(src Source, fetcher *Fetcher, renderer *Renderer, opts Options, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopN <= 0 {
		opts.TopN = models.MaxSelections
	}
	return &Service{
		src:      src,
		fetcher:  fetcher,
		renderer: renderer,
		opts:     opts,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

type snapshot struct {
	photos       []models.Photo
	selections   []models.Selection
	participants []models.Participant
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.photos, err = s.src.ListPhotos(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.selections, err = s.src.ListSelections(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.participants, err = s.src.ListParticipants(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Fetch("failed to load export data", err)
	}
	return &snap, nil
}

// Ranking returns every catalog photo ranked by votes.
func (s *Service) Ranking(ctx context.Context) ([]models.RankedPhoto, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(snap.photos, snap.selections), nil
}

// Build fetches the data, ranks, waits for every image and renders the PDF.
// A concurrent call while one is running fails with a conflict.
func (s *Service) Build(ctx context.Context) (res *Result, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperr.Conflict("export already in progress", nil)
	}
	defer s.running.Store(false)

	started := time.Now()
	defer func() {
		missing := 0
		if res != nil {
			missing = len(res.MissingImages)
		}
		s.metrics.ObserveExport(started, missing, err)
	}()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	top := Top(Rank(snap.photos, snap.selections), s.opts.TopN)
	layout := NewLayout(s.opts.Title, s.opts.Subtitle, s.opts.TopN, snap.participants, top, s.now())

	images := s.fetcher.FetchAll(ctx, top)
	for id, img := range images {
		if img.Err != nil {
			s.logger.Warn("export image unavailable", zap.Int64("photo_id", id), zap.Error(img.Err))
		}
	}

	var buf bytes.Buffer
	missing, err := s.renderer.Render(&buf, layout, images)
	if err != nil {
		return nil, apperr.Render("failed to render pdf", err)
	}
	s.logger.Info("export rendered",
		zap.Int("pages", layout.TotalPages()),
		zap.Int("bytes", buf.Len()),
		zap.Int("missing_images", len(missing)),
		zap.Duration("took", time.Since(started)),
	)
	return &Result{PDF: buf.Bytes(), Layout: layout, MissingImages: missing}, nil
}
