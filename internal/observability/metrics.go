package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors exported by the bot.
type Metrics struct {
	registry          *prometheus.Registry
	relayedMessages   *prometheus.CounterVec
	transportFailures *prometheus.CounterVec
	ticketsCreated    prometheus.Counter
	ticketsClosed     *prometheus.CounterVec
	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errorCount        *prometheus.CounterVec
}

// NewMetrics initializes a dedicated registry with all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		relayedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_bot_relayed_messages_total",
			Help: "Messages relayed between users and support threads.",
		}, []string{"direction", "kind"}),
		transportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_bot_transport_failures_total",
			Help: "Transport calls that failed or hit an unreachable recipient.",
		}, []string{"operation", "status"}),
		ticketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "support_bot_tickets_created_total",
			Help: "Tickets opened through the intake wizard.",
		}),
		ticketsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_bot_tickets_closed_total",
			Help: "Tickets closed, by reason.",
		}, []string{"reason"}),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_bot_http_requests_total",
			Help: "HTTP requests served by the staff API.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "support_bot_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_bot_http_errors_total",
			Help: "HTTP requests that ended in a domain error.",
		}, []string{"path", "method", "code"}),
	}
	m.registry.MustRegister(
		m.relayedMessages,
		m.transportFailures,
		m.ticketsCreated,
		m.ticketsClosed,
		m.requestCount,
		m.requestDuration,
		m.errorCount,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRelay counts a relayed message.
func (m *Metrics) RecordRelay(direction, kind string) {
	if m == nil {
		return
	}
	m.relayedMessages.WithLabelValues(direction, kind).Inc()
}

// RecordTransportFailure counts a failed transport call.
func (m *Metrics) RecordTransportFailure(operation, status string) {
	if m == nil {
		return
	}
	m.transportFailures.WithLabelValues(operation, status).Inc()
}

// RecordTicketCreated counts a submitted ticket.
func (m *Metrics) RecordTicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

// RecordTicketClosed counts a closed ticket.
func (m *Metrics) RecordTicketClosed(reason string) {
	if m == nil {
		return
	}
	m.ticketsClosed.WithLabelValues(reason).Inc()
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}
