package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Purchase outcomes recorded by Metrics.ObservePurchase.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	Purchases       *prometheus.CounterVec
	PurchaseLines   *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	QueueDepth      prometheus.GaugeFunc
}

// NewMetrics registers the service collectors. depth, when non-nil, backs the
// event queue depth gauge.
func NewMetrics(depth func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		PurchaseLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_lines_total",
			Help:      "Cart lines evaluated during purchases, by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Ticket events handed to the broker, by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Purchases, m.PurchaseLines, m.EventsPublished,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if depth != nil {
		m.QueueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_queue_depth",
			Help:      "Ticket events waiting for a worker.",
		}, func() float64 { return float64(depth()) })
		reg.MustRegister(m.QueueDepth)
	}
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest is nil-safe.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)
}

// ObservePurchase is nil-safe.
func (m *Metrics) ObservePurchase(outcome string, fulfilled, failed int) {
	if m == nil {
		return
	}
	m.Purchases.WithLabelValues(outcome).Inc()
	m.PurchaseLines.WithLabelValues("fulfilled").Add(float64(fulfilled))
	m.PurchaseLines.WithLabelValues("failed").Add(float64(failed))
}

// ObservePublish is nil-safe.
func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(status).Inc()
}
