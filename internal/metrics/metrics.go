// Package metrics provides centralized Prometheus metrics registry for the ticket service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trackside"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TicketsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_submitted_total",
		Help:      "Total number of tickets submitted by outcome",
	}, []string{"outcome"})
	SelectionsMaterializedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selections_materialized_total",
		Help:      "Total number of ticket lines created by bet type",
	}, []string{"bet_type"})
	SelectionsPrunedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selections_pruned_total",
		Help:      "Total number of ticket lines removed after a disqualification",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route and status",
	}, []string{"method", "route", "status"})
)

// Gauge metrics
var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of open ticket sessions",
	})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Number of connected websocket clients",
	})
)

// Histogram metrics
var (
	TicketTotalCost = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ticket_total_cost_dollars",
		Help:      "Total cost of submitted tickets in dollars",
		Buckets:   []float64{2, 5, 10, 20, 50, 100, 250, 500, 1000},
	})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of API requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		// Register ticket metrics
		registry.MustRegister(TicketsSubmittedTotal)
		registry.MustRegister(SelectionsMaterializedTotal)
		registry.MustRegister(SelectionsPrunedTotal)
		registry.MustRegister(ActiveSessions)
		registry.MustRegister(TicketTotalCost)

		// Register transport metrics
		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
		registry.MustRegister(WebsocketClients)

		// Register ingestion metrics
		registry.MustRegister(IngestionRunsTotal)
		registry.MustRegister(IngestionRacesTotal)
		registry.MustRegister(IngestionHorsesTotal)
		registry.MustRegister(IngestionErrorsTotal)
		registry.MustRegister(IngestionDuration)
		registry.MustRegister(HorseListUpdatesPublished)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordTicketSubmitted records a submission and the ticket's total cost.
func RecordTicketSubmitted(outcome string, totalCost float64) {
	TicketsSubmittedTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		TicketTotalCost.Observe(totalCost)
	}
}

// RecordSelectionsMaterialized records ticket lines added for a bet type.
func RecordSelectionsMaterialized(betType string, count int) {
	if count <= 0 {
		return
	}
	SelectionsMaterializedTotal.WithLabelValues(betType).Add(float64(count))
}

// RecordSelectionsPruned records lines removed by disqualification.
func RecordSelectionsPruned(count int) {
	if count <= 0 {
		return
	}
	SelectionsPrunedTotal.Add(float64(count))
}

// UpdateActiveSessions updates the open sessions gauge.
func UpdateActiveSessions(count int) {
	ActiveSessions.Set(float64(count))
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// WebsocketConnected increments the websocket client gauge.
func WebsocketConnected() {
	WebsocketClients.Inc()
}

// WebsocketDisconnected decrements the websocket client gauge.
func WebsocketDisconnected() {
	WebsocketClients.Dec()
}
