package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/aggregate"
	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/validation"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) error
	BulkUpsert(ctx context.Context, records []*models.Attendance) (map[int]error, error)
	ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	ListForStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
}

type studentStatusLookup interface {
	StatusByIDs(ctx context.Context, ids []string) (map[string]models.StudentStatus, error)
}

// MarkAttendanceRequest records one student's status for a day. Date
// defaults to today in the school time zone.
type MarkAttendanceRequest struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Date      string                  `json:"date"`
	Status    models.AttendanceStatus `json:"status" validate:"required,attendance_status"`
}

// BulkMarkAttendanceRequest records many students for the same day.
type BulkMarkAttendanceRequest struct {
	Date    string                   `json:"date"`
	Entries []models.AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceFailure explains why a bulk entry was not saved.
type AttendanceFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// BulkAttendanceResult summarises a bulk submission.
type BulkAttendanceResult struct {
	Saved  int                 `json:"saved"`
	Failed []AttendanceFailure `json:"failed"`
}

// MonthlyAttendance is the present/absent summary of one student for a month.
type MonthlyAttendance struct {
	StudentID string `json:"student_id"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	models.AttendanceSummary
}

// AttendanceService records and queries daily attendance.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentStatusLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service. loc is the school
// calendar used for "today".
func NewAttendanceService(repo attendanceRepository, students studentStatusLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *AttendanceService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{repo: repo, students: students, metrics: metrics, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// Mark upserts the record for (student, date); repeating it overwrites status and recorder.
func (s *AttendanceService) Mark(ctx context.Context, caller authz.Caller, req MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid attendance payload")
	}
	date, err := s.dayOrToday(req.Date)
	if err != nil {
		return nil, err
	}
	statuses, err := s.lookup(ctx, []string{req.StudentID})
	if err != nil {
		return nil, err
	}
	if reason := eligibility(statuses, req.StudentID); reason != nil {
		return nil, reason
	}

	record := &models.Attendance{StudentID: req.StudentID, Date: date, Status: req.Status, MarkedBy: callerRef(caller)}
	if err := s.repo.Upsert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrUnknownStudent) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to mark attendance")
	}
	s.metrics.RecordAttendance(1, 0)
	return record, nil
}

// MarkBulk applies Mark to every entry in one batch. Entries that fail are
// reported and do not abort the rest.
func (s *AttendanceService) MarkBulk(ctx context.Context, caller authz.Caller, req BulkMarkAttendanceRequest) (*BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid attendance payload")
	}
	date, err := s.dayOrToday(req.Date)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Entries))
	for _, entry := range req.Entries {
		ids = append(ids, entry.StudentID)
	}
	statuses, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &BulkAttendanceResult{Failed: []AttendanceFailure{}}
	records := make([]*models.Attendance, 0, len(req.Entries))
	seen := make(map[string]int, len(req.Entries))
	for _, entry := range req.Entries {
		if reason := eligibility(statuses, entry.StudentID); reason != nil {
			result.Failed = append(result.Failed, AttendanceFailure{StudentID: entry.StudentID, Reason: reason.Message})
			continue
		}
		// Later entries for the same student win, matching upsert semantics.
		if i, dup := seen[entry.StudentID]; dup {
			records[i].Status = entry.Status
			continue
		}
		seen[entry.StudentID] = len(records)
		records = append(records, &models.Attendance{StudentID: entry.StudentID, Date: date, Status: entry.Status, MarkedBy: callerRef(caller)})
	}

	failures, err := s.repo.BulkUpsert(ctx, records)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save attendance batch")
	}
	for i, record := range records {
		rowErr, failed := failures[i]
		if !failed {
			result.Saved++
			continue
		}
		reason := "failed to save"
		if errors.Is(rowErr, repository.ErrUnknownStudent) {
			reason = "student not found"
		} else {
			s.logger.Warn("attendance entry failed", zap.String("student_id", record.StudentID), zap.Error(rowErr))
		}
		result.Failed = append(result.Failed, AttendanceFailure{StudentID: record.StudentID, Reason: reason})
	}
	s.metrics.RecordAttendance(result.Saved, len(result.Failed))
	return result, nil
}

// ByDate returns every record of a calendar day joined with student fields.
// Rows whose student cannot be joined are reported as warnings.
func (s *AttendanceService) ByDate(ctx context.Context, rawDate string) ([]models.AttendanceRecord, []models.DataIntegrityWarning, error) {
	date, err := parseDay(rawDate)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.repo.ListRecords(ctx, models.AttendanceFilter{DateFrom: &date, DateTo: &date})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load attendance")
	}
	return withoutOrphanedAttendance(records), aggregate.AttendanceWarnings(records), nil
}

// ByStudent returns the full history of a student, most recent first.
func (s *AttendanceService) ByStudent(ctx context.Context, studentID string) ([]models.Attendance, error) {
	if !validID(studentID) {
		return []models.Attendance{}, nil
	}
	records, err := s.repo.ListForStudent(ctx, models.AttendanceFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	return records, nil
}

// MonthlyReport counts present and absent days of a student in a calendar month.
func (s *AttendanceService) MonthlyReport(ctx context.Context, studentID string, month, year int) (*MonthlyAttendance, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 1900 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}
	statuses, err := s.lookup(ctx, []string{studentID})
	if err != nil {
		return nil, err
	}
	if _, ok := statuses[studentID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	from, to := aggregate.MonthRange(month, year)
	records, err := s.repo.ListForStudent(ctx, models.AttendanceFilter{StudentID: studentID, DateFrom: &from, DateTo: &to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	return &MonthlyAttendance{StudentID: studentID, Month: month, Year: year, AttendanceSummary: aggregate.AttendanceSummary(records)}, nil
}

func (s *AttendanceService) lookup(ctx context.Context, ids []string) (map[string]models.StudentStatus, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	statuses, err := s.students.StatusByIDs(ctx, valid)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	return statuses, nil
}

func (s *AttendanceService) dayOrToday(raw string) (time.Time, error) {
	if raw == "" {
		return aggregate.DayOf(s.now(), s.loc), nil
	}
	return parseDay(raw)
}

// eligibility returns why a student may not receive attendance or marks.
func eligibility(statuses map[string]models.StudentStatus, studentID string) *appErrors.Error {
	status, ok := statuses[studentID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if status != models.StudentStatusApproved {
		return appErrors.Clone(appErrors.ErrValidation, "student is not approved")
	}
	return nil
}

func parseDay(raw string) (time.Time, error) {
	date, err := time.Parse(aggregate.DateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return date, nil
}

func callerRef(caller authz.Caller) *string {
	if caller.ID == "" {
		return nil
	}
	id := caller.ID
	return &id
}

func withoutOrphanedAttendance(records []models.AttendanceRecord) []models.AttendanceRecord {
	kept := make([]models.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if !r.Orphaned() {
			kept = append(kept, r)
		}
	}
	return kept
}
