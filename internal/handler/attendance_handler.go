package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, caller authz.Caller, req service.MarkAttendanceRequest) (*models.Attendance, error)
	MarkBulk(ctx context.Context, caller authz.Caller, req service.BulkMarkAttendanceRequest) (*service.BulkAttendanceResult, error)
	ByDate(ctx context.Context, date string) ([]models.AttendanceRecord, []models.DataIntegrityWarning, error)
	ByStudent(ctx context.Context, studentID string) ([]models.Attendance, error)
	MonthlyReport(ctx context.Context, studentID string, month, year int) (*service.MonthlyAttendance, error)
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Record attendance
// @Description Creates or overwrites the record of a student for a day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// MarkBulk godoc
// @Summary Record attendance for many students
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkMarkAttendanceRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) MarkBulk(c *gin.Context) {
	var req service.BulkMarkAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	result, err := h.attendance.MarkBulk(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ByDate godoc
// @Summary Attendance of one day
// @Tags Attendance
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/date/{date} [get]
func (h *AttendanceHandler) ByDate(c *gin.Context) {
	records, warnings, err := h.attendance.ByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, records, warnings)
}

// ByStudent godoc
// @Summary Attendance history of a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id} [get]
func (h *AttendanceHandler) ByStudent(c *gin.Context) {
	records, err := h.attendance.ByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// Monthly godoc
// @Summary Monthly attendance summary of a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id}/monthly [get]
func (h *AttendanceHandler) Monthly(c *gin.Context) {
	month, errMonth := strconv.Atoi(c.Query("month"))
	year, errYear := strconv.Atoi(c.Query("year"))
	if errMonth != nil || errYear != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month and year must be numbers"))
		return
	}
	report, err := h.attendance.MonthlyReport(c.Request.Context(), c.Param("id"), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
