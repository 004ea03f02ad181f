package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_brief"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Upstream calls: forecast, geocode, alerts, radar, llm.
	UpstreamRequests *prometheus.CounterVec   // labels: source, outcome={success,error,empty}
	UpstreamDuration *prometheus.HistogramVec // labels: source

	GeocodeCache *prometheus.CounterVec // labels: result={hit,miss}

	BriefsGenerated    *prometheus.CounterVec // labels: kind={rules,llm}
	BriefingsPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	RadarFrames  prometheus.Gauge
	RadarPlaying prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.GeocodeCache,
		m.BriefsGenerated,
		m.BriefingsPublished,
		m.PublishErrors,
		m.RadarFrames,
		m.RadarPlaying,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		BriefsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefs_generated_total",
			Help:      "Briefs produced, by generator kind.",
		}, []string{"kind"}),
		BriefingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefings_published_total",
			Help:      "Briefing events written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefing_publish_errors_total",
			Help:      "Briefing events that failed to publish.",
		}),
		RadarFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "radar_frames",
			Help:      "Number of radar frames currently loaded.",
		}),
		RadarPlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "radar_playing",
			Help:      "1 while radar playback is running, 0 when paused.",
		}),
	}
}

// Outcome labels for UpstreamRequests.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)
