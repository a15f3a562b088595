package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback orchestrator.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	sessionsStartedTotal  prometheus.Counter
	activeSessions        prometheus.Gauge
	eventsTotal           *prometheus.CounterVec
	transitionsTotal      prometheus.Counter
	historyFailuresTotal  *prometheus.CounterVec
	websocketClientsGauge prometheus.Gauge
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	sessionsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_sessions_started_total",
		Help: "Total number of playback sessions started",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playback_active_sessions",
		Help: "Number of playback sessions not torn down",
	})
	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_events_total",
		Help: "Total number of orchestrator events dispatched, by event",
	}, []string{"event"})
	transitionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_transitions_total",
		Help: "Total number of events that changed session state",
	})
	historyFailuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_history_failures_total",
		Help: "Total number of failed background history calls, by operation",
	}, []string{"op"})
	websocketClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playback_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		sessionsStartedTotal,
		activeSessions,
		eventsTotal,
		transitionsTotal,
		historyFailuresTotal,
		websocketClients,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		errorsTotal:           errorsTotal,
		sessionsStartedTotal:  sessionsStartedTotal,
		activeSessions:        activeSessions,
		eventsTotal:           eventsTotal,
		transitionsTotal:      transitionsTotal,
		historyFailuresTotal:  historyFailuresTotal,
		websocketClientsGauge: websocketClients,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncSessionsStarted increments the sessions started counter.
func (m *Metrics) IncSessionsStarted() {
	m.sessionsStartedTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// IncEvent counts one dispatched orchestrator event.
func (m *Metrics) IncEvent(event string) {
	m.eventsTotal.WithLabelValues(event).Inc()
}

// IncTransitions counts one state-changing event.
func (m *Metrics) IncTransitions() {
	m.transitionsTotal.Inc()
}

// IncHistoryFailures counts one failed background history call.
func (m *Metrics) IncHistoryFailures(op string) {
	m.historyFailuresTotal.WithLabelValues(op).Inc()
}

// AddWebsocketClients adjusts the connected WebSocket client gauge by delta.
func (m *Metrics) AddWebsocketClients(delta int) {
	m.websocketClientsGauge.Add(float64(delta))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
