package adapthttp

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one Server. Each Server owns
// its own registry so tests can build many servers.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	sheetsCreated prometheus.Counter
	finalToggles  *prometheus.CounterVec
}

// NewMetrics registers the weighttracking collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighttracking",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weighttracking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		sheetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weighttracking",
			Name:      "weight_sheets_bulk_created_total",
			Help:      "Weight sheets created by create_all_weightsheets.",
		}),
		finalToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighttracking",
			Name:      "weight_sheets_final_toggled_total",
			Help:      "Weight sheets locked or unlocked in bulk.",
		}, []string{"action"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.sheetsCreated,
		m.finalToggles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) instrument(route string, next http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), next))
}

func (m *Metrics) addSheetsCreated(n int) {
	m.sheetsCreated.Add(float64(n))
}

func (m *Metrics) addFinalToggled(final bool, n int64) {
	action := "unlock"
	if final {
		action = "lock"
	}
	m.finalToggles.WithLabelValues(action).Add(float64(n))
}
