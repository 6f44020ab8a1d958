package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback core.
type Metrics struct {
	registry          *prometheus.Registry
	recoveriesTotal   *prometheus.CounterVec
	reloadsTotal      prometheus.Counter
	downgradesTotal   *prometheus.CounterVec
	skipsTotal        *prometheus.CounterVec
	muteEventsTotal   prometheus.Counter
	fatalErrorsTotal  prometheus.Counter
	segmentFetchFails prometheus.Counter
	qualityHeight     prometheus.Gauge
}

// New creates and registers the playback metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	recoveriesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playkeeper_recoveries_total",
		Help: "Recovery attempts by classified error bucket",
	}, []string{"bucket"})
	reloadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playkeeper_reloads_total",
		Help: "Generic reload commands issued to the engine",
	})
	downgradesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playkeeper_downgrades_total",
		Help: "Quality downgrades by trigger reason",
	}, []string{"reason"})
	skipsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playkeeper_segment_skips_total",
		Help: "Segments skipped by category",
	}, []string{"category"})
	muteEventsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playkeeper_mute_events_total",
		Help: "Mute-on events emitted for mute segments",
	})
	fatalErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playkeeper_fatal_errors_total",
		Help: "Sessions terminated by unrecoverable errors",
	})
	segmentFetchFails := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playkeeper_segment_fetch_failures_total",
		Help: "Segment list fetches that failed and were treated as empty",
	})
	qualityHeight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playkeeper_quality_height",
		Help: "Resolution height of the active video stream",
	})

	registry.MustRegister(
		recoveriesTotal,
		reloadsTotal,
		downgradesTotal,
		skipsTotal,
		muteEventsTotal,
		fatalErrorsTotal,
		segmentFetchFails,
		qualityHeight,
	)

	return &Metrics{
		registry:          registry,
		recoveriesTotal:   recoveriesTotal,
		reloadsTotal:      reloadsTotal,
		downgradesTotal:   downgradesTotal,
		skipsTotal:        skipsTotal,
		muteEventsTotal:   muteEventsTotal,
		fatalErrorsTotal:  fatalErrorsTotal,
		segmentFetchFails: segmentFetchFails,
		qualityHeight:     qualityHeight,
	}
}

func (m *Metrics) IncRecovery(bucket string) {
	m.recoveriesTotal.WithLabelValues(bucket).Inc()
}

func (m *Metrics) IncReload() {
	m.reloadsTotal.Inc()
}

func (m *Metrics) IncDowngrade(reason string) {
	m.downgradesTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncSkip(category string) {
	m.skipsTotal.WithLabelValues(category).Inc()
}

func (m *Metrics) IncMuteEvent() {
	m.muteEventsTotal.Inc()
}

func (m *Metrics) IncFatalError() {
	m.fatalErrorsTotal.Inc()
}

func (m *Metrics) IncSegmentFetchFailure() {
	m.segmentFetchFails.Inc()
}

func (m *Metrics) SetQualityHeight(height int) {
	m.qualityHeight.Set(float64(height))
}

// Handler returns an http.Handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
