package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/dto"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type reportFixture struct {
	svc        *ReportingService
	students   *fakeStudentRepo
	attendance *fakeAttendanceRepo
	marks      *fakeMarkRepo
}

var reportNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newReportFixture(students ...*models.Student) *reportFixture {
	studentRepo := newFakeStudentRepo(students...)
	f := &reportFixture{
		students:   studentRepo,
		attendance: newFakeAttendanceRepo(studentRepo),
		marks:      newFakeMarkRepo(studentRepo),
	}
	f.svc = NewReportingService(studentRepo, f.attendance, f.marks, nil, time.UTC)
	f.svc.now = func() time.Time { return reportNow }
	return f
}

func (f *reportFixture) attend(t *testing.T, studentID string, daysAgo int, status models.AttendanceStatus) {
	t.Helper()
	date := time.Date(2024, 3, 10-daysAgo, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.attendance.Upsert(context.Background(), &models.Attendance{StudentID: studentID, Date: date, Status: status}))
}

func (f *reportFixture) mark(t *testing.T, studentID, exam string, value float64) {
	t.Helper()
	require.NoError(t, f.marks.Create(context.Background(), &models.Mark{StudentID: studentID, ExamType: exam, Subject: "Math", Score: value, MaxScore: 100}))
}

func TestDashboardAggregates(t *testing.T) {
	alice := approvedStudent("Alice", "R-1", "10A")
	bob := approvedStudent("Bob", "R-2", "10B")
	pending := approvedStudent("Pat", "R-3", "10A")
	pending.Status = models.StudentStatusPending
	approvedAt := reportNow.Add(-time.Hour)
	alice.ApprovedAt = &approvedAt
	f := newReportFixture(alice, bob, pending)

	f.attend(t, alice.ID, 0, models.AttendanceStatusPresent)
	f.attend(t, bob.ID, 0, models.AttendanceStatusAbsent)
	f.attend(t, alice.ID, 2, models.AttendanceStatusPresent)
	f.attend(t, uuid.NewString(), 0, models.AttendanceStatusPresent)
	f.mark(t, alice.ID, "Final", 40)
	f.mark(t, bob.ID, "Final", 60)

	resp, err := f.svc.Dashboard(context.Background(), teacherCaller)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalStudents)
	assert.Equal(t, 0, resp.PendingStudents)
	assert.Empty(t, resp.RecentApprovals)
	assert.Equal(t, dto.AttendanceCount{Present: 1, Total: 2}, resp.TodayAttendance)
	require.Len(t, resp.WeeklyAttendance, 7)
	assert.Equal(t, models.DayCount{Date: "2024-03-10", Present: 1, Total: 2}, resp.WeeklyAttendance[6])
	assert.Equal(t, models.DayCount{Date: "2024-03-08", Present: 1, Total: 1}, resp.WeeklyAttendance[4])
	assert.Equal(t, 0, resp.WeeklyAttendance[0].Total)
	assert.Equal(t, []models.ClassCount{{Class: "10A", Present: 1, Total: 1}, {Class: "10B", Present: 0, Total: 1}}, resp.ClassAttendance)
	assert.Equal(t, 50.0, resp.PassRate)
	require.Len(t, resp.TopPerformers, 2)
	assert.Equal(t, bob.ID, resp.TopPerformers[0].Student.ID)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, models.IntegrityOrphanedAttendance, resp.Warnings[0].Kind)

	resp, err = f.svc.Dashboard(context.Background(), adminCaller)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PendingStudents)
	require.NotEmpty(t, resp.RecentApprovals)
	assert.Equal(t, alice.ID, resp.RecentApprovals[0].ID)
}

func TestDashboardEmptyStore(t *testing.T) {
	f := newReportFixture()
	resp, err := f.svc.Dashboard(context.Background(), adminCaller)
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.PassRate)
	assert.Empty(t, resp.TopPerformers)
	assert.Len(t, resp.WeeklyAttendance, 7)
	assert.Empty(t, resp.Warnings)
}

func TestStudentReportAccess(t *testing.T) {
	alice := approvedStudent("Alice", "R-1", "10A")
	bob := approvedStudent("Bob", "R-2", "10A")
	f := newReportFixture(alice, bob)
	f.attend(t, alice.ID, 0, models.AttendanceStatusPresent)
	f.attend(t, alice.ID, 1, models.AttendanceStatusAbsent)
	f.mark(t, alice.ID, "Final", 70)
	f.mark(t, alice.ID, "Quiz", 85)

	aliceCaller := authz.Caller{ID: alice.ID, Role: models.RoleStudent}
	_, err := f.svc.StudentReport(context.Background(), aliceCaller, bob.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	report, err := f.svc.StudentReport(context.Background(), aliceCaller, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, report.Student.ID)
	assert.Len(t, report.Attendance, 2)
	assert.Equal(t, 50.0, report.AttendancePercentage)
	assert.Equal(t, 77.5, report.AverageScore)

	report, err = f.svc.StudentReport(context.Background(), adminCaller, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Attendance)
	assert.Equal(t, 0.0, report.AttendancePercentage)
	assert.Equal(t, 0.0, report.AverageScore)

	_, err = f.svc.StudentReport(context.Background(), adminCaller, uuid.NewString())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentReportLimitsAttendance(t *testing.T) {
	alice := approvedStudent("Alice", "R-1", "10A")
	f := newReportFixture(alice)
	for i := 0; i < 35; i++ {
		date := reportNow.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		require.NoError(t, f.attendance.Upsert(context.Background(), &models.Attendance{StudentID: alice.ID, Date: date, Status: models.AttendanceStatusPresent}))
	}

	report, err := f.svc.StudentReport(context.Background(), adminCaller, alice.ID)
	require.NoError(t, err)
	assert.Len(t, report.Attendance, 30)
	assert.Equal(t, "2024-03-10", report.Attendance[0].Date.Format("2006-01-02"))
}

func TestAttendanceReportFilters(t *testing.T) {
	alice := approvedStudent("Alice", "R-1", "10A")
	bob := approvedStudent("Bob", "R-2", "10B")
	f := newReportFixture(alice, bob)
	f.attend(t, alice.ID, 0, models.AttendanceStatusPresent)
	f.attend(t, bob.ID, 0, models.AttendanceStatusPresent)
	f.attend(t, alice.ID, 5, models.AttendanceStatusAbsent)

	resp, err := f.svc.AttendanceReport(context.Background(), dto.AttendanceReportRequest{Class: "10A"})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 2)
	assert.Equal(t, dto.AttendanceCount{Present: 1, Total: 2}, resp.Summary)

	resp, err = f.svc.AttendanceReport(context.Background(), dto.AttendanceReportRequest{From: "2024-03-09", To: "2024-03-10"})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 2)

	_, err = f.svc.AttendanceReport(context.Background(), dto.AttendanceReportRequest{From: "2024-03-10", To: "2024-03-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.AttendanceReport(context.Background(), dto.AttendanceReportRequest{From: "yesterday"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestMarksReportFilters(t *testing.T) {
	alice := approvedStudent("Alice", "R-1", "10A")
	bob := approvedStudent("Bob", "R-2", "10B")
	f := newReportFixture(alice, bob)
	f.mark(t, alice.ID, "Final", 80)
	f.mark(t, bob.ID, "Final", 60)
	f.mark(t, alice.ID, "Quiz", 100)
	f.marks.addOrphan("Final", 10)

	resp, err := f.svc.MarksReport(context.Background(), dto.MarksReportRequest{ExamType: "Final"})
	require.NoError(t, err)
	assert.Len(t, resp.Marks, 2)
	assert.Equal(t, 70.0, resp.Average)
	assert.Len(t, resp.Warnings, 1)

	resp, err = f.svc.MarksReport(context.Background(), dto.MarksReportRequest{Class: "10A"})
	require.NoError(t, err)
	assert.Len(t, resp.Marks, 2)
	assert.Equal(t, 90.0, resp.Average)
}
