package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	reminderRuns    prometheus.Counter
	reminderSent    prometheus.Counter
	reminderFailed  prometheus.Counter
}

// NewMetricsService registers the core collectors.
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

	reminderRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_runs_total",
		Help: "Total reminder scan runs",
	})

	reminderSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_mails_sent_total",
		Help: "Total reminder mails dispatched",
	})

	reminderFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_mails_failed_total",
		Help: "Total reminder mails that failed to dispatch",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reminderRuns, reminderSent, reminderFailed, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		reminderRuns:    reminderRuns,
		reminderSent:    reminderSent,
		reminderFailed:  reminderFailed,
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

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveReminderRun records the outcome of one reminder dispatch run.
func (m *MetricsService) ObserveReminderRun(sent, failed int) {
	if m == nil {
		return
	}
	m.reminderRuns.Inc()
	m.reminderSent.Add(float64(sent))
	m.reminderFailed.Add(float64(failed))
}
