package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/aggregate"
	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/validation"
)

type markRepository interface {
	Create(ctx context.Context, mark *models.Mark) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error)
	ListRecords(ctx context.Context, filter models.MarkFilter) ([]models.MarkRecord, error)
}

// AddMarkRequest records a score. MaxScore defaults to 100.
type AddMarkRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	ExamType  string   `json:"exam_type" validate:"required,notblank,max=64"`
	Subject   string   `json:"subject" validate:"required,notblank,max=128"`
	Score     *float64 `json:"score" validate:"required"`
	MaxScore  *float64 `json:"max_score" validate:"omitempty,gt=0,lte=9999.99"`
}

// MarkListing is a set of joined marks plus the rows excluded for integrity reasons.
type MarkListing struct {
	Marks    []models.MarkRecord           `json:"marks"`
	Warnings []models.DataIntegrityWarning `json:"warnings"`
}

// ExamRanking orders the students of one exam by average score.
type ExamRanking struct {
	ExamType string                        `json:"exam_type"`
	Rankings []models.RankEntry            `json:"rankings"`
	Warnings []models.DataIntegrityWarning `json:"warnings"`
}

// GradingService records marks and ranks exams.
type GradingService struct {
	repo      markRepository
	students  studentStatusLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs the grading service.
func NewGradingService(repo markRepository, students studentStatusLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{repo: repo, students: students, metrics: metrics, validator: validate, logger: logger}
}

// AddMark records a score for an approved student. The score must lie in [0, max_score].
func (s *GradingService) AddMark(ctx context.Context, caller authz.Caller, req AddMarkRequest) (*models.Mark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid mark payload")
	}
	maxScore := models.DefaultMaxScore
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	score := *req.Score
	if score < 0 || score > maxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and %g", maxScore))
	}

	ids := []string{}
	if validID(req.StudentID) {
		ids = append(ids, req.StudentID)
	}
	statuses, err := s.students.StatusByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if reason := eligibility(statuses, req.StudentID); reason != nil {
		return nil, reason
	}

	mark := &models.Mark{
		StudentID: req.StudentID,
		ExamType:  strings.TrimSpace(req.ExamType),
		Subject:   strings.TrimSpace(req.Subject),
		Score:     score,
		MaxScore:  maxScore,
		EnteredBy: callerRef(caller),
	}
	if err := s.repo.Create(ctx, mark); err != nil {
		if errors.Is(err, repository.ErrUnknownStudent) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to record mark")
	}
	s.metrics.RecordMark()
	s.logger.Debug("mark recorded", zap.String("student_id", mark.StudentID), zap.String("exam_type", mark.ExamType))
	return mark, nil
}

// ByStudent returns every mark of a student, most recent first.
func (s *GradingService) ByStudent(ctx context.Context, studentID string) ([]models.Mark, error) {
	if !validID(studentID) {
		return []models.Mark{}, nil
	}
	marks, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load marks")
	}
	return marks, nil
}

// ByExam returns the marks of one exam sorted by score, highest first.
func (s *GradingService) ByExam(ctx context.Context, examType string) (*MarkListing, error) {
	return s.listing(ctx, models.MarkFilter{ExamType: strings.TrimSpace(examType), SortBy: models.MarkSortScore})
}

// AllMarks returns every mark, newest first.
func (s *GradingService) AllMarks(ctx context.Context) (*MarkListing, error) {
	return s.listing(ctx, models.MarkFilter{})
}

// Rank orders the students of an exam by average score across subjects.
func (s *GradingService) Rank(ctx context.Context, examType string) (*ExamRanking, error) {
	examType = strings.TrimSpace(examType)
	if examType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam_type is required")
	}
	records, err := s.repo.ListRecords(ctx, models.MarkFilter{ExamType: examType})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load marks")
	}
	return &ExamRanking{
		ExamType: examType,
		Rankings: aggregate.RankExam(records),
		Warnings: aggregate.MarkWarnings(records),
	}, nil
}

func (s *GradingService) listing(ctx context.Context, filter models.MarkFilter) (*MarkListing, error) {
	records, err := s.repo.ListRecords(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load marks")
	}
	return &MarkListing{Marks: withoutOrphanedMarks(records), Warnings: aggregate.MarkWarnings(records)}, nil
}

func withoutOrphanedMarks(records []models.MarkRecord) []models.MarkRecord {
	kept := make([]models.MarkRecord, 0, len(records))
	for _, r := range records {
		if !r.Orphaned() {
			kept = append(kept, r)
		}
	}
	return kept
}
