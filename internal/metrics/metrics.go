// Package metrics provides Prometheus collectors for predictions, feedback and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cropguard"

// Prediction outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeClientError = "client_error"
	OutcomeServerError = "server_error"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	predictionsTotal    *prometheus.CounterVec
	inferenceDuration   *prometheus.HistogramVec
	persistenceFailures *prometheus.CounterVec
	feedbackTotal       *prometheus.CounterVec
	contactsTotal       *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of prediction requests by model type and outcome",
		},
		[]string{"model_type", "outcome"},
	)

	m.inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent in classifier inference",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"model_type"},
	)

	m.persistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Best-effort writes that failed without failing the request",
		},
		[]string{"operation"}, // operation: insert_prediction, archive, release
	)

	m.feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Total number of feedback submissions by outcome",
		},
		[]string{"outcome"},
	)

	m.contactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contacts_total",
			Help:      "Total number of contact submissions by notification status",
		},
		[]string{"notified"},
	)

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)
}

func (m *Metrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.predictionsTotal,
		m.inferenceDuration,
		m.persistenceFailures,
		m.feedbackTotal,
		m.contactsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.getCollectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.getCollectors() {
		c.Collect(ch)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPrediction counts a prediction request.
func (m *Metrics) RecordPrediction(modelType, outcome string) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(modelType, outcome).Inc()
}

// RecordInference records classifier latency.
func (m *Metrics) RecordInference(modelType string, seconds float64) {
	if m == nil {
		return
	}
	m.inferenceDuration.WithLabelValues(modelType).Observe(seconds)
}

// RecordPersistenceFailure counts a swallowed write failure.
func (m *Metrics) RecordPersistenceFailure(operation string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(operation).Inc()
}

// RecordFeedback counts a feedback submission.
func (m *Metrics) RecordFeedback(outcome string) {
	if m == nil {
		return
	}
	m.feedbackTotal.WithLabelValues(outcome).Inc()
}

// RecordContact counts a stored contact message.
func (m *Metrics) RecordContact(notified bool) {
	if m == nil {
		return
	}
	m.contactsTotal.WithLabelValues(strconv.FormatBool(notified)).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(path).Observe(seconds)
}
