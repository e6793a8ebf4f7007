package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service. Following the
// explicit dependency injection pattern, this struct is passed to every
// component that records metrics; a nil *Metrics disables recording.
type Metrics struct {
	// Chain status provider metrics
	providerCallsTotal   *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec

	// Reconciler metrics
	reconcileTickDuration  *prometheus.HistogramVec
	statusTransitionsTotal *prometheus.CounterVec
	staleTransfersTotal    prometheus.Counter
	pendingTransfers       prometheus.Gauge

	// Notification metrics
	notificationsTotal *prometheus.CounterVec

	// Diagnosis metrics
	diagnosesTotal *prometheus.CounterVec

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// SSE metrics
	sseActiveConnections prometheus.Gauge
	sseEventsSent        prometheus.Counter
}

// NewMetrics creates a Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		providerCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_status_calls_total",
				Help: "Total number of chain status provider calls by chain and outcome",
			},
			[]string{"chain", "status"},
		),
		providerCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_status_call_duration_seconds",
				Help:    "Duration of chain status provider calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"chain"},
		),

		reconcileTickDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconcile_tick_duration_seconds",
				Help:    "Duration of one reconciler tick in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"outcome"},
		),
		statusTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfer_status_transitions_total",
				Help: "Total number of transfer status transitions applied by the reconciler",
			},
			[]string{"status"},
		),
		staleTransfersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transfer_stale_total",
				Help: "Total number of transfers marked stale after exhausting poll attempts",
			},
		),
		pendingTransfers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "transfers_pending",
				Help: "Number of pending transfers observed on the last reconciler tick",
			},
		),

		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of completion notifications by outcome",
			},
			[]string{"status"},
		),

		diagnosesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funding_diagnoses_total",
				Help: "Total number of funding diagnoses by resulting problem",
			},
			[]string{"problem"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		sseActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
		),
		sseEventsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
		),
	}
}

// RecordProviderCall records a chain status provider call with duration.
func (m *Metrics) RecordProviderCall(chain, status string, duration float64) {
	if m == nil {
		return
	}
	m.providerCallsTotal.WithLabelValues(chain, status).Inc()
	m.providerCallDuration.WithLabelValues(chain).Observe(duration)
}

// RecordTick records one reconciler tick.
func (m *Metrics) RecordTick(outcome string, duration float64) {
	if m == nil {
		return
	}
	m.reconcileTickDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordStatusTransition records a status change applied to a record.
func (m *Metrics) RecordStatusTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordStale records a transfer marked stale.
func (m *Metrics) RecordStale() {
	if m == nil {
		return
	}
	m.staleTransfersTotal.Inc()
}

// SetPendingTransfers records the pending set size seen on a tick.
func (m *Metrics) SetPendingTransfers(n int) {
	if m == nil {
		return
	}
	m.pendingTransfers.Set(float64(n))
}

// RecordNotification records a completion notification attempt.
func (m *Metrics) RecordNotification(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "error"
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}

// RecordDiagnosis records a funding diagnosis outcome.
func (m *Metrics) RecordDiagnosis(problem string) {
	if m == nil {
		return
	}
	m.diagnosesTotal.WithLabelValues(problem).Inc()
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(delta float64) {
	if m == nil {
		return
	}
	m.sseActiveConnections.Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent() {
	if m == nil {
		return
	}
	m.sseEventsSent.Inc()
}

// statusCodeToString buckets status codes into class strings (2xx, 4xx...).
func statusCodeToString(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
