// Package observability exposes Prometheus metrics for the ledger.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/hisab/hisab-ledger/internal/jobs"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesTotal      *prometheus.CounterVec
	salesAmount     *prometheus.CounterVec
	salesDeleted    prometheus.Counter
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, sale and job metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hisab_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hisab_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hisab_sales_total",
		Help: "Completed sales by kind.",
	}, []string{"kind"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hisab_sales_amount_total",
		Help: "Sum of completed sale totals by kind.",
	}, []string{"kind"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hisab_sales_deleted_total",
		Help: "Deleted sales.",
	})
	registry.MustRegister(requests, duration, sales, amount, deleted)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesTotal:      sales,
		salesAmount:     amount,
		salesDeleted:    deleted,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
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

// Jobs returns the job collectors registered on this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// AnalyticsGate reports whether sale analytics may be recorded.
type AnalyticsGate interface {
	AnalyticsEnabled(ctx context.Context) bool
}

// SalesObserver feeds sale events into Metrics while the gate allows it.
type SalesObserver struct {
	metrics *Metrics
	gate    AnalyticsGate
}

// NewSalesObserver constructs SalesObserver. A nil gate always records.
func NewSalesObserver(m *Metrics, gate AnalyticsGate) *SalesObserver {
	return &SalesObserver{metrics: m, gate: gate}
}

func (o *SalesObserver) enabled(ctx context.Context) bool {
	if o == nil || o.metrics == nil {
		return false
	}
	return o.gate == nil || o.gate.AnalyticsEnabled(ctx)
}

// SaleCompleted counts a committed sale.
func (o *SalesObserver) SaleCompleted(ctx context.Context, isCredit bool, total decimal.Decimal) {
	if !o.enabled(ctx) {
		return
	}
	kind := "cash"
	if isCredit {
		kind = "credit"
	}
	o.metrics.salesTotal.WithLabelValues(kind).Inc()
	o.metrics.salesAmount.WithLabelValues(kind).Add(total.InexactFloat64())
}

// SaleDeleted counts a deleted sale.
func (o *SalesObserver) SaleDeleted(ctx context.Context) {
	if !o.enabled(ctx) {
		return
	}
	o.metrics.salesDeleted.Inc()
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
