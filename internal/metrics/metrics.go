// Package metrics exposes Prometheus collectors for the HTTP layer and the
// ledger. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mixi"

// Metrics holds every collector on its own registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	expensesCreated    *prometheus.CounterVec
	settlementsApplied *prometheus.CounterVec
	settlementEdges    prometheus.Histogram
	settlementReplays  prometheus.Counter
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		expensesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Expenses created by type and split policy.",
		}, []string{"type", "split_type"}),
		settlementsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_applied_total",
			Help:      "Settlement batches applied by kind.",
		}, []string{"kind"}),
		settlementEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_edges",
			Help:      "Payments recorded per settlement batch.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		settlementReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_replays_total",
			Help:      "Settlement requests answered from a stored batch via their idempotency key.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.expensesCreated,
		m.settlementsApplied,
		m.settlementEdges,
		m.settlementReplays,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Middleware records request count and latency keyed by the chi route
// pattern, so path parameters don't explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ExpenseCreated counts a new expense
func (m *Metrics) ExpenseCreated(expenseType, splitType string) {
	if m == nil {
		return
	}
	m.expensesCreated.WithLabelValues(expenseType, splitType).Inc()
}

// SettlementApplied counts an applied batch and the payments it recorded
func (m *Metrics) SettlementApplied(kind string, edges int) {
	if m == nil {
		return
	}
	m.settlementsApplied.WithLabelValues(kind).Inc()
	m.settlementEdges.Observe(float64(edges))
}

// SettlementReplayed counts a request answered from a stored batch
func (m *Metrics) SettlementReplayed() {
	if m == nil {
		return
	}
	m.settlementReplays.Inc()
}
