package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func TestMetricsServiceCountsDomainEvents(t *testing.T) {
	metrics := NewMetricsService()

	metrics.RecordEnrollmentTransition(models.StudentStatusApproved, 3)
	metrics.RecordAttendance(4, 1)
	metrics.RecordMark()
	metrics.RecordLogin("student", LoginOutcomeNeedsSetup)

	body := scrape(t, metrics)
	assert.Contains(t, body, `enrollment_transitions_total{status="approved"} 3`)
	assert.Contains(t, body, "attendance_records_saved_total 4")
	assert.Contains(t, body, "attendance_records_failed_total 1")
	assert.Contains(t, body, "marks_recorded_total 1")
	assert.Contains(t, body, `login_attempts_total{kind="student",outcome="needs_setup"} 1`)
}

func TestMetricsServiceHandlerServesRegistry(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/dashboard", http.StatusOK, 15*time.Millisecond)

	assert.Contains(t, scrape(t, metrics), `http_requests_total{method="GET",path="/api/dashboard",status="200"} 1`)
}

func scrape(t *testing.T, metrics *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordMark()
	metrics.RecordLogin("staff", LoginOutcomeFailure)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
