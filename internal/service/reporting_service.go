package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/aggregate"
	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const (
	dashboardSeriesDays = 7
	dashboardTopN       = 5
	dashboardRecentN    = 5
	studentReportRecent = 30
)

type reportStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	CountByStatus(ctx context.Context) ([]models.StudentStatusCount, error)
	RecentApprovals(ctx context.Context, limit int) ([]models.RecentApproval, error)
}

type reportAttendanceReader interface {
	ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	ListForStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
}

type reportMarkReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error)
	ListRecords(ctx context.Context, filter models.MarkFilter) ([]models.MarkRecord, error)
}

// ReportingService computes read-only aggregates fresh on every call.
type ReportingService struct {
	students   reportStudentReader
	attendance reportAttendanceReader
	marks      reportMarkReader
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

// NewReportingService constructs the reporting service. loc is the school calendar.
func NewReportingService(students reportStudentReader, attendance reportAttendanceReader, marks reportMarkReader, logger *zap.Logger, loc *time.Location) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportingService{students: students, attendance: attendance, marks: marks, logger: logger, loc: loc, now: time.Now}
}

// Dashboard aggregates enrollment, attendance and grading figures. Pending
// counts and recent approvals are only filled for admin callers.
func (s *ReportingService) Dashboard(ctx context.Context, caller authz.Caller) (*dto.DashboardResponse, error) {
	counts, err := s.students.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	admin := caller.Can(authz.CanViewAdminDashboard)

	resp := &dto.DashboardResponse{}
	for _, c := range counts {
		switch c.Status {
		case models.StudentStatusApproved:
			resp.TotalStudents = c.Count
		case models.StudentStatusPending:
			if admin {
				resp.PendingStudents = c.Count
			}
		}
	}

	today := aggregate.DayOf(s.now(), s.loc)
	weekStart := today.AddDate(0, 0, -(dashboardSeriesDays - 1))
	week, err := s.attendance.ListRecords(ctx, models.AttendanceFilter{DateFrom: &weekStart, DateTo: &today})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	todays := make([]models.AttendanceRecord, 0)
	for _, r := range week {
		if r.Date.Equal(today) && !r.Orphaned() {
			todays = append(todays, r)
			resp.TodayAttendance.Total++
			if r.Status == models.AttendanceStatusPresent {
				resp.TodayAttendance.Present++
			}
		}
	}
	resp.WeeklyAttendance = aggregate.DailySeries(week, today, dashboardSeriesDays)
	resp.ClassAttendance = aggregate.ClassBreakdown(todays)

	marks, err := s.marks.ListRecords(ctx, models.MarkFilter{})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load marks")
	}
	averages := aggregate.StudentAverages(marks)
	resp.PassRate = aggregate.PassRate(averages, aggregate.PassThreshold)
	resp.TopPerformers = aggregate.TopPerformers(averages, dashboardTopN)

	if admin {
		recent, err := s.students.RecentApprovals(ctx, dashboardRecentN)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load recent approvals")
		}
		resp.RecentApprovals = recent
	}

	resp.Warnings = append(aggregate.AttendanceWarnings(week), aggregate.MarkWarnings(marks)...)
	if len(resp.Warnings) > 0 {
		s.logger.Warn("dashboard excluded orphaned rows", zap.Int("count", len(resp.Warnings)))
	}
	return resp, nil
}

// StudentReport returns the profile, recent attendance and marks of one
// student. Callers without report:view_any_student may only read their own.
func (s *ReportingService) StudentReport(ctx context.Context, caller authz.Caller, studentID string) (*dto.StudentReportResponse, error) {
	if !caller.Can(authz.CanViewAnyReport) && caller.ID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own report")
	}
	if !validID(studentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}

	attendance, err := s.attendance.ListForStudent(ctx, models.AttendanceFilter{StudentID: studentID, Limit: studentReportRecent})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	marks, err := s.marks.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load marks")
	}

	return &dto.StudentReportResponse{
		Student:              *student,
		Attendance:           attendance,
		Marks:                marks,
		AttendancePercentage: aggregate.AttendanceSummary(attendance).Percentage,
		AverageScore:         aggregate.AverageScore(marks),
	}, nil
}

// AttendanceReport lists attendance in an optional date range and class.
func (s *ReportingService) AttendanceReport(ctx context.Context, req dto.AttendanceReportRequest) (*dto.AttendanceReportResponse, error) {
	filter := models.AttendanceFilter{}
	if req.From != "" {
		from, err := parseDay(req.From)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if req.To != "" {
		to, err := parseDay(req.To)
		if err != nil {
			return nil, err
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}

	records, err := s.attendance.ListRecords(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}

	resp := &dto.AttendanceReportResponse{Records: make([]models.AttendanceRecord, 0, len(records)), Warnings: aggregate.AttendanceWarnings(records)}
	for _, r := range records {
		if r.Orphaned() || (req.Class != "" && *r.Class != req.Class) {
			continue
		}
		resp.Records = append(resp.Records, r)
		resp.Summary.Total++
		if r.Status == models.AttendanceStatusPresent {
			resp.Summary.Present++
		}
	}
	return resp, nil
}

// MarksReport lists marks for an optional exam and class.
func (s *ReportingService) MarksReport(ctx context.Context, req dto.MarksReportRequest) (*dto.MarksReportResponse, error) {
	records, err := s.marks.ListRecords(ctx, models.MarkFilter{ExamType: req.ExamType})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load marks")
	}

	resp := &dto.MarksReportResponse{Marks: make([]models.MarkRecord, 0, len(records)), Warnings: aggregate.MarkWarnings(records)}
	scored := make([]models.Mark, 0, len(records))
	for _, r := range records {
		if r.Orphaned() || (req.Class != "" && *r.Class != req.Class) {
			continue
		}
		resp.Marks = append(resp.Marks, r)
		scored = append(scored, r.Mark)
	}
	resp.Average = aggregate.AverageScore(scored)
	return resp, nil
}
