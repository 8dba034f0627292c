package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// Login outcomes reported to metrics.
const (
	LoginOutcomeSuccess     = "success"
	LoginOutcomeFailure     = "failure"
	LoginOutcomeNeedsSetup  = "needs_setup"
	LoginOutcomeRateLimited = "rate_limited"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and
// the school workflows.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	enrollmentChanges *prometheus.CounterVec
	attendanceSaved   prometheus.Counter
	attendanceFailed  prometheus.Counter
	marksRecorded     prometheus.Counter
	loginAttempts     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	enrollmentChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_transitions_total",
		Help: "Students moved to a lifecycle status",
	}, []string{"status"})

	attendanceSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_records_saved_total",
		Help: "Attendance rows created or overwritten",
	})

	attendanceFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_records_failed_total",
		Help: "Attendance entries rejected inside bulk submissions",
	})

	marksRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "marks_recorded_total",
		Help: "Exam marks recorded",
	})

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by principal kind and outcome",
	}, []string{"kind", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollmentChanges, attendanceSaved, attendanceFailed, marksRecorded, loginAttempts, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		enrollmentChanges: enrollmentChanges,
		attendanceSaved:   attendanceSaved,
		attendanceFailed:  attendanceFailed,
		marksRecorded:     marksRecorded,
		loginAttempts:     loginAttempts,
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

// RecordEnrollmentTransition counts students moved to status.
func (m *MetricsService) RecordEnrollmentTransition(status models.StudentStatus, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.enrollmentChanges.WithLabelValues(string(status)).Add(float64(count))
}

// RecordAttendance counts saved and rejected attendance entries.
func (m *MetricsService) RecordAttendance(saved, failed int) {
	if m == nil {
		return
	}
	if saved > 0 {
		m.attendanceSaved.Add(float64(saved))
	}
	if failed > 0 {
		m.attendanceFailed.Add(float64(failed))
	}
}

// RecordMark counts a recorded mark.
func (m *MetricsService) RecordMark() {
	if m == nil {
		return
	}
	m.marksRecorded.Inc()
}

// RecordLogin counts a login attempt. kind is "staff" or "student".
func (m *MetricsService) RecordLogin(kind, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(kind, outcome).Inc()
}
