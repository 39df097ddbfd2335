package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
//
// Recording methods are safe to call on a nil *Registry so components can
// run without metrics in tests and in the CLI.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	liveTicks      *prometheus.CounterVec
	liveTickTime   prometheus.Histogram
	liveSessions   prometheus.Gauge
	catalogLoads   *prometheus.CounterVec
	spotFetches    *prometheus.CounterVec
	selectionCoins prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.liveTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptodash_live_ticks_total",
			Help: "Total number of live polling ticks by outcome",
		},
		[]string{"outcome"},
	)
	r.liveTickTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cryptodash_live_tick_duration_seconds",
			Help:    "Live polling tick duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	r.liveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptodash_live_sessions_active",
			Help: "Number of live sessions currently polling",
		},
	)
	r.catalogLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptodash_catalog_loads_total",
			Help: "Total number of catalog loads by source",
		},
		[]string{"source"},
	)
	r.spotFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptodash_spot_fetches_total",
			Help: "Total number of single-coin spot price fetches",
		},
		[]string{"status"},
	)
	r.selectionCoins = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptodash_selection_size",
			Help: "Number of coins currently selected",
		},
	)

	reg.MustRegister(r.liveTicks)
	reg.MustRegister(r.liveTickTime)
	reg.MustRegister(r.liveSessions)
	reg.MustRegister(r.catalogLoads)
	reg.MustRegister(r.spotFetches)
	reg.MustRegister(r.selectionCoins)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordTick records one live polling tick. Outcome is "ok", "dropped",
// "halted" or "failed".
func (r *Registry) RecordTick(outcome string, duration float64) {
	if r == nil {
		return
	}
	r.liveTicks.WithLabelValues(outcome).Inc()
	r.liveTickTime.Observe(duration)
}

// SessionStarted increments the active live session gauge.
func (r *Registry) SessionStarted() {
	if r == nil {
		return
	}
	r.liveSessions.Inc()
}

// SessionStopped decrements the active live session gauge.
func (r *Registry) SessionStopped() {
	if r == nil {
		return
	}
	r.liveSessions.Dec()
}

// RecordCatalogLoad records where a catalog load was served from.
func (r *Registry) RecordCatalogLoad(source string) {
	if r == nil {
		return
	}
	r.catalogLoads.WithLabelValues(source).Inc()
}

// RecordSpotFetch records a single-coin spot price fetch.
func (r *Registry) RecordSpotFetch(status string) {
	if r == nil {
		return
	}
	r.spotFetches.WithLabelValues(status).Inc()
}

// SetSelectionSize sets the selection size.
func (r *Registry) SetSelectionSize(size int) {
	if r == nil {
		return
	}
	r.selectionCoins.Set(float64(size))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
