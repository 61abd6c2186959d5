package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the collectors the service
// reports on. All methods tolerate a nil receiver so handlers and services
// can run without a metrics sink in tests.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	journalPostings *prometheus.CounterVec
	stockMovements  *prometheus.CounterVec
}

// NewMetrics builds a registry with the HTTP and ledger collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courtledger_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courtledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courtledger_journal_postings_total",
		Help: "Journal postings by outcome (posted, rejected).",
	}, []string{"outcome"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courtledger_stock_movements_total",
		Help: "Inventory movements by type.",
	}, []string{"type"})
	registry.MustRegister(requests, duration, postings, movements)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		journalPostings: postings,
		stockMovements:  movements,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and duration for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// JournalPosted counts a successfully posted journal entry.
func (m *Metrics) JournalPosted() {
	if m == nil {
		return
	}
	m.journalPostings.WithLabelValues("posted").Inc()
}

// JournalRejected counts a posting that failed validation.
func (m *Metrics) JournalRejected() {
	if m == nil {
		return
	}
	m.journalPostings.WithLabelValues("rejected").Inc()
}

// MovementRecorded counts an inventory movement of the given type.
func (m *Metrics) MovementRecorded(kind string) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(kind).Inc()
}

// Registerer exposes the registry for ad-hoc collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
