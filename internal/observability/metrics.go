// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incentive-token/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	AmountMoved       *prometheus.CounterVec

	// Ledger state metrics
	TotalSupply prometheus.Gauge
	Paused      prometheus.Gauge
	MintCounter prometheus.Gauge

	// Event log metrics
	EventsRecorded  prometheus.Counter
	EventsDropped   prometheus.Counter
	EventBufferSize prometheus.Gauge
	StreamClients   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	RateLimited *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "incentive_token"
	}
	f := promauto.With(reg)

	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by operation and result",
		}, []string{"op", "result"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency including durable commit",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		AmountMoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_total",
			Help:      "Base units minted, transferred or burned",
		}, []string{"op"}),

		TotalSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_supply",
			Help:      "Current total supply in base units",
		}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "paused",
			Help:      "1 if the ledger is paused",
		}),
		MintCounter: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mint_counter",
			Help:      "Highest allocated mint sequence id",
		}),

		EventsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "recorded_total",
			Help:      "Total number of ledger events written to the event log",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of ledger events that could not be recorded",
		}),
		EventBufferSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "buffer_size",
			Help:      "Events waiting to be flushed to the event log",
		}),
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "stream_clients",
			Help:      "Connected websocket event stream clients",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-caller rate limiter",
		}, []string{"route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordOperation records one ledger call. result is "ok" or the symbolic
// error code.
func RecordOperation(op domain.Operation, result string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(string(op), result).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(string(op)).Observe(seconds)
}

// UpdateLedgerState updates the ledger state gauges.
func UpdateLedgerState(totalSupply int64, paused bool, mintCounter uint64) {
	DefaultMetrics.TotalSupply.Set(float64(totalSupply))
	if paused {
		DefaultMetrics.Paused.Set(1)
	} else {
		DefaultMetrics.Paused.Set(0)
	}
	DefaultMetrics.MintCounter.Set(float64(mintCounter))
}

// RecordEventsRecorded adds n to the recorded events counter.
func RecordEventsRecorded(n int) {
	DefaultMetrics.EventsRecorded.Add(float64(n))
}

// RecordEventsDropped adds n to the dropped events counter.
func RecordEventsDropped(n int) {
	DefaultMetrics.EventsDropped.Add(float64(n))
}

// UpdateEventBuffer sets the pending event buffer gauge.
func UpdateEventBuffer(n int) {
	DefaultMetrics.EventBufferSize.Set(float64(n))
}

// UpdateStreamClients sets the websocket client gauge.
func UpdateStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRateLimited increments the rate limited counter for a route.
func RecordRateLimited(route string) {
	DefaultMetrics.RateLimited.WithLabelValues(route).Inc()
}

// LedgerObserver counts committed amounts per operation kind.
type LedgerObserver struct{}

// OnEvent implements ledger.Observer.
func (LedgerObserver) OnEvent(e domain.Event) {
	switch e.Kind {
	case domain.OpMint, domain.OpTransfer, domain.OpBurn:
		DefaultMetrics.AmountMoved.WithLabelValues(string(e.Kind)).Add(float64(e.Amount))
	}
}
