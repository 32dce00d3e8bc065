package diag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the small Prometheus surface the runtime updates
// opportunistically: commit duration, reconcile set sizes, damage-region
// cell ratio, drawlist byte size, and encoder cap rejections. All metrics
// are prefixed "tuicore_".
//
// Registration is opt-in: NewMetrics never touches prometheus.DefaultRegisterer
// unless the caller passes it. A nil Metrics (the zero value of *Metrics)
// is safe to use: every method is a no-op guard on m == nil.
type Metrics struct {
	commitDuration    prometheus.Histogram
	reconcileReused    prometheus.Counter
	reconcileAllocated prometheus.Counter
	reconcileUnmounted prometheus.Counter
	damageCellRatio    prometheus.Histogram
	drawlistBytes      prometheus.Histogram
	encoderCapHits     *prometheus.CounterVec
	metadataPasses     prometheus.Counter
}

// NewMetrics creates and registers the collectors against reg. Registration
// failures (e.g. a duplicate registration in a shared registry) are
// ignored, so tests that construct more than one runtime against the same
// registry keep working. The existing collector is not adopted: a
// collector that failed to register stays unregistered, and what this
// Metrics observes through it is not gathered from reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tuicore_commit_duration_seconds",
			Help:    "Time spent reconciling and committing one frame's virtual tree.",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileReused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuicore_reconcile_reused_total",
			Help: "Total runtime instances reused across a reconciliation pass.",
		}),
		reconcileAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuicore_reconcile_allocated_total",
			Help: "Total runtime instances freshly allocated across a reconciliation pass.",
		}),
		reconcileUnmounted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuicore_reconcile_unmounted_total",
			Help: "Total runtime instances unmounted across a reconciliation pass.",
		}),
		damageCellRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tuicore_damage_cell_ratio",
			Help:    "Fraction of viewport cells damaged in one rendered frame.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.4, 0.6, 0.8, 1.0},
		}),
		drawlistBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tuicore_drawlist_bytes",
			Help:    "Size in bytes of a built drawlist frame.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 12),
		}),
		encoderCapHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tuicore_encoder_cap_rejections_total",
			Help: "Total drawlist builder operations rejected for exceeding a configured cap.",
		}, []string{"cap"}),
		metadataPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tuicore_metadata_collector_passes_total",
			Help: "Total frames for which the widget metadata collector ran.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.commitDuration, m.reconcileReused, m.reconcileAllocated, m.reconcileUnmounted,
		m.damageCellRatio, m.drawlistBytes, m.encoderCapHits, m.metadataPasses,
	} {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = are // the name is taken; c stays unregistered.
				continue
			}
		}
	}
	return m
}

func (m *Metrics) ObserveCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.commitDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveReconcile(reused, allocated, unmounted int) {
	if m == nil {
		return
	}
	m.reconcileReused.Add(float64(reused))
	m.reconcileAllocated.Add(float64(allocated))
	m.reconcileUnmounted.Add(float64(unmounted))
}

func (m *Metrics) ObserveDamageRatio(touchedCells, viewportCells int) {
	if m == nil || viewportCells == 0 {
		return
	}
	m.damageCellRatio.Observe(float64(touchedCells) / float64(viewportCells))
}

func (m *Metrics) ObserveDrawlistBytes(n int) {
	if m == nil {
		return
	}
	m.drawlistBytes.Observe(float64(n))
}

func (m *Metrics) ObserveCapRejection(cap string) {
	if m == nil {
		return
	}
	m.encoderCapHits.WithLabelValues(cap).Inc()
}

func (m *Metrics) ObserveMetadataPass() {
	if m == nil {
		return
	}
	m.metadataPasses.Inc()
}
