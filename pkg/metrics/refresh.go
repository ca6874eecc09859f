package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes recorded by RefreshMetrics.
const (
	OutcomeApplied   = "applied"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// RefreshMetrics records dashboard refresh and upstream call behaviour.
type RefreshMetrics struct {
	refreshes *prometheus.CounterVec
	duration  prometheus.Histogram
	upstream  *prometheus.HistogramVec
	options   *prometheus.GaugeVec
}

// NewRefreshMetrics registers the dashboard metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	if reg == nil {
		return &RefreshMetrics{}
	}
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_total",
		Help: "Dashboard refreshes by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "refresh_duration_seconds",
		Help:    "Time from refresh issuance to completion.",
		Buckets: prometheus.DefBuckets,
	})
	upstream := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Latency of calls to the traffic aggregation API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})
	options := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "location_options",
		Help: "Number of options last loaded per location kind.",
	}, []string{"kind"})
	reg.MustRegister(refreshes, duration, upstream, options)
	return &RefreshMetrics{
		refreshes: refreshes,
		duration:  duration,
		upstream:  upstream,
		options:   options,
	}
}

// ObserveRefresh records one finished refresh.
func (m *RefreshMetrics) ObserveRefresh(outcome string, elapsed time.Duration) {
	if m == nil || m.refreshes == nil {
		return
	}
	m.refreshes.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveUpstream records one call to the aggregation API. Status 0 means a transport failure.
func (m *RefreshMetrics) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	if m == nil || m.upstream == nil {
		return
	}
	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	m.upstream.WithLabelValues(normalizeLabel(endpoint), statusLabel).Observe(elapsed.Seconds())
}

// SetLocationOptions records how many options a kind currently offers.
func (m *RefreshMetrics) SetLocationOptions(kind string, count int) {
	if m == nil || m.options == nil {
		return
	}
	m.options.WithLabelValues(normalizeLabel(kind)).Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
