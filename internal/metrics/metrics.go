// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/efreitasn/mockmaker/internal/domain"
)

const namespace = "mockmaker"

// Metrics owns a private registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	orders         *prometheus.CounterVec
	matchDuration  prometheus.Histogram
	marketUpdates  *prometheus.CounterVec
	quoteCycles    prometheus.Counter
	quotesEmitted  *prometheus.CounterVec
	quotesSkipped  *prometheus.CounterVec
	workerPanics   *prometheus.CounterVec
	activeSessions prometheus.Gauge
	publishErrors  *prometheus.CounterVec
}

// New creates and registers all instruments, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_total",
			Help:      "Orders matched, by kind, side and outcome.",
		}, []string{"kind", "side", "status"}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "match_duration_seconds",
			Help:      "Time spent deciding a single order.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
		marketUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "updates_total",
			Help:      "Market snapshot updates, by source.",
		}, []string{"source"}),
		quoteCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quoter",
			Name:      "cycles_total",
			Help:      "Completed quoting cycles.",
		}),
		quotesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quoter",
			Name:      "quotes_emitted_total",
			Help:      "Desired quotes emitted, by symbol.",
		}, []string{"symbol"}),
		quotesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quoter",
			Name:      "quotes_skipped_total",
			Help:      "Symbols skipped for lack of a market, by symbol.",
		}, []string{"symbol"}),
		workerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "panics_total",
			Help:      "Recovered panics that aborted a worker cycle, by worker.",
		}, []string{"worker"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "active_sessions",
			Help:      "Client sessions currently logged on.",
		}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Events that could not be handed to the broker, by topic.",
		}, []string{"topic"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.orders,
		m.matchDuration,
		m.marketUpdates,
		m.quoteCycles,
		m.quotesEmitted,
		m.quotesSkipped,
		m.workerPanics,
		m.activeSessions,
		m.publishErrors,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFill records the outcome of one matched order.
func (m *Metrics) ObserveFill(f domain.FillResult, took time.Duration) {
	m.orders.WithLabelValues(string(f.Kind), string(f.Side), string(f.Status)).Inc()
	m.matchDuration.Observe(took.Seconds())
}

// MarketUpdated counts a snapshot update from source ("feed" or "api").
func (m *Metrics) MarketUpdated(source string) {
	m.marketUpdates.WithLabelValues(source).Inc()
}

// QuoteCycle counts a completed quoting cycle.
func (m *Metrics) QuoteCycle() {
	m.quoteCycles.Inc()
}

// QuoteEmitted counts a desired quote for symbol.
func (m *Metrics) QuoteEmitted(symbol string) {
	m.quotesEmitted.WithLabelValues(symbol).Inc()
}

// QuoteSkipped counts a symbol skipped because it had no market.
func (m *Metrics) QuoteSkipped(symbol string) {
	m.quotesSkipped.WithLabelValues(symbol).Inc()
}

// WorkerPanic counts a recovered panic in the named worker.
func (m *Metrics) WorkerPanic(worker string) {
	m.workerPanics.WithLabelValues(worker).Inc()
}

// SetActiveSessions sets the active session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// PublishFailed counts an event dropped for topic.
func (m *Metrics) PublishFailed(topic string) {
	m.publishErrors.WithLabelValues(topic).Inc()
}
