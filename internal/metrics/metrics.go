package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores del servicio. Un *Metrics nil no registra nada.
type Metrics struct {
	toggles             *prometheus.CounterVec
	toggleRetries       prometheus.Counter
	toggleConflicts     prometheus.Counter
	tokenEvents         *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	aggregationTimeouts *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registra las métricas en reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		toggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_toggles_total",
			Help: "Relationship toggles by edge kind and outcome",
		}, []string{"kind", "result"}),
		toggleRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotube_toggle_retries_total",
			Help: "Toggles retried after a uniqueness conflict",
		}),
		toggleConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "videotube_toggle_conflicts_total",
			Help: "Toggles that still conflicted after the retry",
		}),
		tokenEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_session_token_events_total",
			Help: "Session token lifecycle events",
		}, []string{"event"}),
		aggregationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "videotube_aggregation_duration_seconds",
			Help:    "Duration of derived view aggregations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"view"}),
		aggregationTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_aggregation_timeouts_total",
			Help: "Aggregations that hit their deadline",
		}, []string{"view"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videotube_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "videotube_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ToggleRecorded(kind, result string) {
	if m == nil {
		return
	}
	m.toggles.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ToggleRetried() {
	if m == nil {
		return
	}
	m.toggleRetries.Inc()
}

func (m *Metrics) ToggleConflicted() {
	if m == nil {
		return
	}
	m.toggleConflicts.Inc()
}

// TokenEvent registra issued, rotated, revoked, reuse_detected o expired.
func (m *Metrics) TokenEvent(event string) {
	if m == nil {
		return
	}
	m.tokenEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) AggregationObserved(view string, d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.aggregationDuration.WithLabelValues(view).Observe(d.Seconds())
	if timedOut {
		m.aggregationTimeouts.WithLabelValues(view).Inc()
	}
}

func (m *Metrics) RequestObserved(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler expone las métricas de g en formato Prometheus.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
