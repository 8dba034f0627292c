package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports reportingService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportingService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StudentReport godoc
// @Summary Student report card
// @Description Students may only request their own report
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/student/{id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	report, err := h.reports.StudentReport(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// AttendanceReport godoc
// @Summary Attendance report
// @Tags Reports
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param class query string false "Class"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) AttendanceReport(c *gin.Context) {
	var req dto.AttendanceReportRequest
	if !bindQuery(c, &req) {
		return
	}
	report, err := h.reports.AttendanceReport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// MarksReport godoc
// @Summary Marks report
// @Tags Reports
// @Produce json
// @Param exam_type query string false "Exam type"
// @Param class query string false "Class"
// @Success 200 {object} response.Envelope
// @Router /reports/marks [get]
func (h *ReportHandler) MarksReport(c *gin.Context) {
	var req dto.MarksReportRequest
	if !bindQuery(c, &req) {
		return
	}
	report, err := h.reports.MarksReport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
