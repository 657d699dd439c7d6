package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation of the HTTP surface
// and the outcomes of the records engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	enrollment      *prometheus.CounterVec
	auth            *prometheus.CounterVec
	lockouts        prometheus.Counter
	finalizations   *prometheus.CounterVec
	eventsDropped   prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	enrollment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_outcomes_total",
		Help: "Enroll and drop attempts by operation and outcome code",
	}, []string{"operation", "outcome"})

	auth := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_outcomes_total",
		Help: "Authentication attempts by outcome code",
	}, []string{"outcome"})

	lockouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "account_lockouts_total",
		Help: "Accounts moved from ACTIVE to LOCKED",
	})

	finalizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_finalizations_total",
		Help: "Final letter grades posted automatically, by letter",
	}, []string{"letter"})

	eventsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_publish_failures_total",
		Help: "Domain events that could not be handed to the publisher",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollment, auth, lockouts, finalizations, eventsDropped, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		enrollment:      enrollment,
		auth:            auth,
		lockouts:        lockouts,
		finalizations:   finalizations,
		eventsDropped:   eventsDropped,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordEnrollmentOutcome counts an enroll or drop result.
func (m *MetricsService) RecordEnrollmentOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.enrollment.WithLabelValues(operation, outcome).Inc()
}

// RecordAuthOutcome counts an authentication result.
func (m *MetricsService) RecordAuthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.auth.WithLabelValues(outcome).Inc()
}

// RecordLockout counts an ACTIVE to LOCKED transition.
func (m *MetricsService) RecordLockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// RecordFinalization counts an automatically posted letter grade.
func (m *MetricsService) RecordFinalization(letter string) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(letter).Inc()
}

// RecordEventFailure counts an event the publisher refused.
func (m *MetricsService) RecordEventFailure() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
