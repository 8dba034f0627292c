package dto

import "github.com/noah-isme/school-admin-api/internal/models"

// DashboardResponse is the aggregated landing view for staff.
type DashboardResponse struct {
	TotalStudents    int                           `json:"total_students"`
	PendingStudents  int                           `json:"pending_students"`
	TodayAttendance  AttendanceCount               `json:"today_attendance"`
	WeeklyAttendance []models.DayCount             `json:"weekly_attendance"`
	ClassAttendance  []models.ClassCount           `json:"class_attendance"`
	PassRate         float64                       `json:"pass_rate"`
	TopPerformers    []models.StudentAverage       `json:"top_performers"`
	RecentApprovals  []models.RecentApproval       `json:"recent_approvals,omitempty"`
	Warnings         []models.DataIntegrityWarning `json:"warnings"`
}

// AttendanceCount is a present/total pair.
type AttendanceCount struct {
	Present int `json:"present"`
	Total   int `json:"total"`
}
