// Package metrics exposes Prometheus instruments for voting, tally and export activity.
package metrics

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	submissions     *prometheus.CounterVec
	resets          *prometheus.CounterVec
	tallyRefreshes  *prometheus.CounterVec
	tallyViewers    prometheus.Gauge
	exportDuration  *prometheus.HistogramVec
	exportImageMiss prometheus.Counter
}

// New registers the collectors on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bestshot",
			Name:      "submissions_total",
			Help:      "Ballot submissions by result.",
		}, []string{"result"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bestshot",
			Name:      "resets_total",
			Help:      "Admin participant resets by result.",
		}, []string{"result"}),
		tallyRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bestshot",
			Name:      "tally_refreshes_total",
			Help:      "Live tally ledger re-reads by result.",
		}, []string{"result"}),
		tallyViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bestshot",
			Name:      "tally_viewers",
			Help:      "Connected live tally WebSocket clients.",
		}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bestshot",
			Name:      "export_duration_seconds",
			Help:      "PDF export wall time by result.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"result"}),
		exportImageMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bestshot",
			Name:      "export_image_failures_total",
			Help:      "Photos rendered as placeholders because their image could not be loaded.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissions, m.resets, m.tallyRefreshes, m.tallyViewers, m.exportDuration, m.exportImageMiss,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSubmission counts a ballot submission.
func (m *Metrics) ObserveSubmission(err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result(err)).Inc()
}

// ObserveReset counts an admin reset.
func (m *Metrics) ObserveReset(err error) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(result(err)).Inc()
}

// ObserveTallyRefresh counts a ledger re-read.
func (m *Metrics) ObserveTallyRefresh(err error) {
	if m == nil {
		return
	}
	m.tallyRefreshes.WithLabelValues(result(err)).Inc()
}

// SetTallyViewers records the connected WebSocket client count.
func (m *Metrics) SetTallyViewers(n int) {
	if m == nil {
		return
	}
	m.tallyViewers.Set(float64(n))
}

// ObserveExport records an export run and how many images were missing.
func (m *Metrics) ObserveExport(started time.Time, missing int, err error) {
	if m == nil {
		return
	}
	m.exportDuration.WithLabelValues(result(err)).Observe(time.Since(started).Seconds())
	m.exportImageMiss.Add(float64(missing))
}

// QueueDepth reports the export job queue's pending and dead-lettered counts.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
	DeadLen(ctx context.Context) (int64, error)
}

// WatchExportQueue exposes the queue's depth, read from Redis on every scrape.
// A failed read reports NaN.
func (m *Metrics) WatchExportQueue(q QueueDepth) {
	if m == nil || q == nil {
		return
	}
	read := func(fn func(context.Context) (int64, error)) func() float64 {
		return func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			n, err := fn(ctx)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bestshot",
			Name:      "export_queue_pending",
			Help:      "Export jobs waiting for a worker.",
		}, read(q.Len)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bestshot",
			Name:      "export_queue_dead",
			Help:      "Export jobs dead-lettered after repeated failures.",
		}, read(q.DeadLen)),
	)
}
