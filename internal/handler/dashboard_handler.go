package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type reportingService interface {
	Dashboard(ctx context.Context, caller authz.Caller) (*dto.DashboardResponse, error)
	StudentReport(ctx context.Context, caller authz.Caller, studentID string) (*dto.StudentReportResponse, error)
	AttendanceReport(ctx context.Context, req dto.AttendanceReportRequest) (*dto.AttendanceReportResponse, error)
	MarksReport(ctx context.Context, req dto.MarksReportRequest) (*dto.MarksReportResponse, error)
}

// DashboardHandler wires the dashboard aggregate to HTTP.
type DashboardHandler struct {
	service reportingService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service reportingService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Pending counts and recent approvals are only filled for admins
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	resp, err := h.service.Dashboard(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}
