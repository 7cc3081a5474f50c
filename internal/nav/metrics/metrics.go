package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gridnav.ai/internal/nav/search"
)

const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

type Metrics struct {
	requests   *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	duration   *prometheus.HistogramVec
	pathLen    prometheus.Histogram
	active     prometheus.Gauge
	los        *prometheus.CounterVec
	defects    prometheus.Counter
}

// New registers the pathfinding metrics on reg. A nil reg uses a private
// registry so tests and tools can create as many as they like.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridnav_path_requests_total",
			Help: "Path requests by mode and result",
		}, []string{"mode", "result"}),
		iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridnav_path_iterations",
			Help:    "A* iterations spent per finished path request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to 8192
		}, []string{"mode"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridnav_path_duration_seconds",
			Help:    "Wall time from request to completion",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}, []string{"mode"}),
		pathLen: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridnav_path_length_cells",
			Help:    "Cells per found path before optimization",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridnav_async_active",
			Help: "Asynchronous searches in flight",
		}),
		los: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridnav_los_checks_total",
			Help: "Line of sight checks by outcome",
		}, []string{"clear"}),
		defects: f.NewCounter(prometheus.CounterOpts{
			Name: "gridnav_connectivity_defects_total",
			Help: "Searches that found no path between cells of the same region",
		}),
	}
}

// Result is the label value for a request outcome.
func Result(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, search.ErrNoGridData):
		return "no_grid_data"
	case errors.Is(err, search.ErrStartInvalid):
		return "start_invalid"
	case errors.Is(err, search.ErrEndInvalid):
		return "end_invalid"
	case errors.Is(err, search.ErrUnlinkedAreas):
		return "unlinked_areas"
	case errors.Is(err, search.ErrBudgetExhausted):
		return "budget_exhausted"
	case errors.Is(err, search.ErrNoPathFound):
		return "no_path_found"
	}
	return "error"
}

// Observe records a finished request. Nil receivers are ignored.
func (m *Metrics) Observe(mode string, err error, iterations, pathLen int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, Result(err)).Inc()
	m.iterations.WithLabelValues(mode).Observe(float64(iterations))
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		m.pathLen.Observe(float64(pathLen))
	}
}

func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}

func (m *Metrics) LineOfSight(visible bool) {
	if m == nil {
		return
	}
	label := "false"
	if visible {
		label = "true"
	}
	m.los.WithLabelValues(label).Inc()
}

func (m *Metrics) Defect() {
	if m == nil {
		return
	}
	m.defects.Inc()
}
