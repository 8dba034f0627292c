package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req service.EnrollStudentRequest) (*models.Student, error)
	Create(ctx context.Context, caller authz.Caller, req service.EnrollStudentRequest) (*models.Student, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, caller authz.Caller, req service.ListStudentsRequest) ([]models.Student, *models.Pagination, error)
	ListPending(ctx context.Context) ([]models.Student, error)
	Update(ctx context.Context, caller authz.Caller, id string, req service.UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, caller authz.Caller, id string) error
	Approve(ctx context.Context, caller authz.Caller, id string) (*models.Student, error)
	Reject(ctx context.Context, caller authz.Caller, id string) (*models.Student, error)
	BulkApprove(ctx context.Context, caller authz.Caller, req service.BulkTransitionRequest) (*service.BulkTransitionResult, error)
	BulkReject(ctx context.Context, caller authz.Caller, req service.BulkTransitionRequest) (*service.BulkTransitionResult, error)
	SetCredential(ctx context.Context, caller authz.Caller, id string, req service.SetCredentialRequest) error
	Stats(ctx context.Context) (*models.StudentStats, error)
}

// StudentHandler exposes enrollment and student endpoints.
type StudentHandler struct {
	students enrollmentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students enrollmentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Enroll godoc
// @Summary Self-enroll a student
// @Description Creates a pending student that an administrator must approve
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enroll [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	var req service.EnrollStudentRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	student, err := h.students.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// List godoc
// @Summary List students
// @Description Staff without student:view_all only see approved students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, roll number or email"
// @Param class query string false "Filter by class"
// @Param status query string false "Filter by status (admin only)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var req service.ListStudentsRequest
	if !bindQuery(c, &req) {
		return
	}
	students, pagination, err := h.students.List(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Pending godoc
// @Summary List pending enrollments
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/pending [get]
func (h *StudentHandler) Pending(c *gin.Context) {
	students, err := h.students.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// Stats godoc
// @Summary Student counts per status and class
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/stats [get]
func (h *StudentHandler) Stats(c *gin.Context) {
	stats, err := h.students.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.EnrollStudentRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	student, err := h.students.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	student, err := h.students.Update(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Delete godoc
// @Summary Delete student
// @Description Attendance and marks of the student are removed with it
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve enrollment
// @Tags Enrollment
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/approve [patch]
func (h *StudentHandler) Approve(c *gin.Context) {
	student, err := h.students.Approve(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Reject godoc
// @Summary Reject enrollment
// @Tags Enrollment
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/reject [patch]
func (h *StudentHandler) Reject(c *gin.Context) {
	student, err := h.students.Reject(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// BulkApprove godoc
// @Summary Approve many enrollments
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.BulkTransitionRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/bulk-approve [post]
func (h *StudentHandler) BulkApprove(c *gin.Context) {
	var req service.BulkTransitionRequest
	if !bindJSON(c, &req, "invalid student id list") {
		return
	}
	result, err := h.students.BulkApprove(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// BulkReject godoc
// @Summary Reject many enrollments
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.BulkTransitionRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/bulk-reject [post]
func (h *StudentHandler) BulkReject(c *gin.Context) {
	var req service.BulkTransitionRequest
	if !bindJSON(c, &req, "invalid student id list") {
		return
	}
	result, err := h.students.BulkReject(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// SetPassword godoc
// @Summary Set a student's password
// @Tags Students
// @Accept json
// @Param id path string true "Student ID"
// @Param payload body service.SetCredentialRequest true "Password"
// @Success 204
// @Router /students/{id}/password [put]
func (h *StudentHandler) SetPassword(c *gin.Context) {
	var req service.SetCredentialRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if err := h.students.SetCredential(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
