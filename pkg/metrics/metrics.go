package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the audit service collectors on a private registry
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	AuditEntries        *prometheus.CounterVec
	AuditResponses      *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	UploadRows          *prometheus.CounterVec
	DuplicateWarnings   prometheus.Counter
	RoutingFailures     prometheus.Counter
	CacheLookups        *prometheus.CounterVec
	RealtimeSubscribers prometheus.Gauge
	IdempotencyRequests *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	constLabels := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"service", "method", "path"}),

		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: constLabels,
		}),

		KafkaEventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		}, []string{"service", "topic", "event_type", "status"}),

		KafkaPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "topic"}),

		MongoDBOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		}, []string{"service", "collection", "operation", "status"}),

		MongoDBOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"service", "collection", "operation"}),

		AuditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_entries_total",
			Help:        "Inventory audit entries submitted, by kind, classification and initial status",
			ConstLabels: constLabels,
		}, []string{"kind", "result", "status"}),

		AuditResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_responses_total",
			Help:        "Client responses recorded on pending entries",
			ConstLabels: constLabels,
		}, []string{"action"}),

		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_notifications_total",
			Help:        "Outbound notifications by channel and outcome",
			ConstLabels: constLabels,
		}, []string{"channel", "outcome"}),

		UploadRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_upload_rows_total",
			Help:        "Rows accepted by bulk uploads",
			ConstLabels: constLabels,
		}, []string{"kind"}),

		DuplicateWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_duplicate_submissions_total",
			Help:        "Submissions that matched an earlier entry for the same key and location",
			ConstLabels: constLabels,
		}),

		RoutingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_routing_failures_total",
			Help:        "Discrepant submissions rejected because no approver serves the location",
			ConstLabels: constLabels,
		}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "audit_catalog_cache_lookups_total",
			Help:        "Reference catalog cache lookups by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),

		RealtimeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "audit_realtime_subscribers",
			Help:        "Open server-sent event streams",
			ConstLabels: constLabels,
		}),

		IdempotencyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "idempotency_requests_total",
			Help:        "Requests carrying an Idempotency-Key by outcome (hit, miss, mismatch, concurrent)",
			ConstLabels: constLabels,
		}, []string{"outcome"}),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"service", "name"}),

		CircuitBreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		}, []string{"service", "name"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.AuditEntries,
		m.AuditResponses,
		m.Notifications,
		m.UploadRows,
		m.DuplicateWarnings,
		m.RoutingFailures,
		m.CacheLookups,
		m.RealtimeSubscribers,
		m.IdempotencyRequests,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, outcome(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordAuditEntry counts a persisted audit entry
func (m *Metrics) RecordAuditEntry(kind, result, status string) {
	m.AuditEntries.WithLabelValues(kind, result, status).Inc()
}

// RecordAuditResponse counts a client decision
func (m *Metrics) RecordAuditResponse(action string) {
	m.AuditResponses.WithLabelValues(action).Inc()
}

// RecordNotification counts a notification attempt
func (m *Metrics) RecordNotification(channel string, success bool) {
	m.Notifications.WithLabelValues(channel, outcome(success)).Inc()
}

// RecordUploadRows counts accepted upload rows
func (m *Metrics) RecordUploadRows(kind string, rows int) {
	m.UploadRows.WithLabelValues(kind).Add(float64(rows))
}

// RecordDuplicateWarning counts an advisory duplicate
func (m *Metrics) RecordDuplicateWarning() {
	m.DuplicateWarnings.Inc()
}

// RecordRoutingFailure counts a submission with no eligible approver
func (m *Metrics) RecordRoutingFailure() {
	m.RoutingFailures.Inc()
}

// RecordCacheLookup counts a catalog cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// RecordIdempotency counts an idempotent request outcome
func (m *Metrics) RecordIdempotency(outcome string) {
	m.IdempotencyRequests.WithLabelValues(outcome).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
