package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the signaling service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket Metrics
	websocketConnections   prometheus.Gauge
	websocketMessagesTotal *prometheus.CounterVec
	websocketErrorsTotal   *prometheus.CounterVec

	// Signaling / Call Metrics
	callsTotal         *prometheus.CounterVec
	callsActive        prometheus.Gauge
	callsDuration      *prometheus.HistogramVec
	signalErrorsTotal  *prometheus.CounterVec
	routedFramesTotal  *prometheus.CounterVec
	fanoutTargetsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics on a private registry
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		websocketConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of live WebSocket connections",
				ConstLabels: labels,
			},
		),
		websocketMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_messages_total",
				Help:        "Total number of WebSocket messages",
				ConstLabels: labels,
			},
			[]string{"type", "direction"},
		),
		websocketErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_errors_total",
				Help:        "Total number of WebSocket errors",
				ConstLabels: labels,
			},
			[]string{"error"},
		),

		callsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_total",
				Help:        "Total number of calls by type and terminal status",
				ConstLabels: labels,
			},
			[]string{"call_type", "status"},
		),
		callsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of calls currently pending or answered",
				ConstLabels: labels,
			},
		),
		callsDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "call_duration_seconds",
				Help:        "Duration of ended calls in seconds",
				ConstLabels: labels,
				Buckets:     []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"call_type"},
		),
		signalErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signal_errors_total",
				Help:        "Total number of signaling errors returned to clients",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		routedFramesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "routed_frames_total",
				Help:        "Total number of frames routed to users",
				ConstLabels: labels,
			},
			[]string{"delivered"},
		),
		fanoutTargetsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "fanout_targets_total",
				Help:        "Total number of group fan-out delivery attempts",
				ConstLabels: labels,
			},
		),
	}
}

// GetRegistry returns the underlying Prometheus registry for the /metrics endpoint
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request with its latency
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// IncrementWebSocketConnections increments the live connection gauge
func (m *Metrics) IncrementWebSocketConnections() {
	m.websocketConnections.Inc()
}

// DecrementWebSocketConnections decrements the live connection gauge
func (m *Metrics) DecrementWebSocketConnections() {
	m.websocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket message by type and direction
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.websocketMessagesTotal.WithLabelValues(msgType, direction).Inc()
}

// RecordWebSocketError records a WebSocket error
func (m *Metrics) RecordWebSocketError(errType string) {
	m.websocketErrorsTotal.WithLabelValues(errType).Inc()
}

// RecordCall records a call reaching a terminal status
func (m *Metrics) RecordCall(callType, status string) {
	m.callsTotal.WithLabelValues(callType, status).Inc()
}

// IncrementActiveCalls increments the active call gauge
func (m *Metrics) IncrementActiveCalls() {
	m.callsActive.Inc()
}

// DecrementActiveCalls decrements the active call gauge
func (m *Metrics) DecrementActiveCalls() {
	m.callsActive.Dec()
}

// RecordCallDuration records the duration of an ended call
func (m *Metrics) RecordCallDuration(callType string, duration time.Duration) {
	m.callsDuration.WithLabelValues(callType).Observe(duration.Seconds())
}

// RecordSignalError records a signaling error frame sent back to a client
func (m *Metrics) RecordSignalError(reason string) {
	m.signalErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordRoutedFrame records one routed frame attempt and its delivery outcome
func (m *Metrics) RecordRoutedFrame(delivered bool) {
	m.routedFramesTotal.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

// RecordFanoutTarget records one group fan-out delivery attempt
func (m *Metrics) RecordFanoutTarget() {
	m.fanoutTargetsTotal.Inc()
}
