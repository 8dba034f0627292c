package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type gradingService interface {
	AddMark(ctx context.Context, caller authz.Caller, req service.AddMarkRequest) (*models.Mark, error)
	ByStudent(ctx context.Context, studentID string) ([]models.Mark, error)
	ByExam(ctx context.Context, examType string) (*service.MarkListing, error)
	AllMarks(ctx context.Context) (*service.MarkListing, error)
	Rank(ctx context.Context, examType string) (*service.ExamRanking, error)
}

// MarkHandler exposes exam mark endpoints.
type MarkHandler struct {
	grading gradingService
}

// NewMarkHandler constructs the handler.
func NewMarkHandler(grading gradingService) *MarkHandler {
	return &MarkHandler{grading: grading}
}

// Add godoc
// @Summary Record a mark
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.AddMarkRequest true "Mark payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /marks [post]
func (h *MarkHandler) Add(c *gin.Context) {
	var req service.AddMarkRequest
	if !bindJSON(c, &req, "invalid mark payload") {
		return
	}
	mark, err := h.grading.AddMark(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// List godoc
// @Summary List every mark
// @Tags Marks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /marks [get]
func (h *MarkHandler) List(c *gin.Context) {
	listing, err := h.grading.AllMarks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, listing.Marks, listing.Warnings)
}

// ByStudent godoc
// @Summary Marks of a student
// @Tags Marks
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /marks/student/{id} [get]
func (h *MarkHandler) ByStudent(c *gin.Context) {
	marks, err := h.grading.ByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, marks)
}

// ByExam godoc
// @Summary Marks of an exam, highest score first
// @Tags Marks
// @Produce json
// @Param examType path string true "Exam type"
// @Success 200 {object} response.Envelope
// @Router /marks/exam/{examType} [get]
func (h *MarkHandler) ByExam(c *gin.Context) {
	listing, err := h.grading.ByExam(c.Request.Context(), c.Param("examType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, listing.Marks, listing.Warnings)
}

// Rank godoc
// @Summary Rank students of an exam
// @Tags Marks
// @Produce json
// @Param examType path string true "Exam type"
// @Success 200 {object} response.Envelope
// @Router /marks/rank/{examType} [get]
func (h *MarkHandler) Rank(c *gin.Context) {
	ranking, err := h.grading.Rank(c.Request.Context(), c.Param("examType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ranking)
}
