package dto

import "github.com/noah-isme/school-admin-api/internal/models"

// StudentReportResponse is the per-student report card.
type StudentReportResponse struct {
	Student              models.Student      `json:"student"`
	Attendance           []models.Attendance `json:"attendance"`
	Marks                []models.Mark       `json:"marks"`
	AttendancePercentage float64             `json:"attendance_percentage"`
	AverageScore         float64             `json:"average_score"`
}

// AttendanceReportRequest filters the attendance report. Dates use YYYY-MM-DD.
type AttendanceReportRequest struct {
	From  string `form:"from"`
	To    string `form:"to"`
	Class string `form:"class"`
}

// AttendanceReportResponse lists joined attendance rows, newest first.
type AttendanceReportResponse struct {
	Records  []models.AttendanceRecord     `json:"records"`
	Summary  AttendanceCount               `json:"summary"`
	Warnings []models.DataIntegrityWarning `json:"warnings"`
}

// MarksReportRequest filters the marks report.
type MarksReportRequest struct {
	ExamType string `form:"exam_type"`
	Class    string `form:"class"`
}

// MarksReportResponse lists joined marks, newest first.
type MarksReportResponse struct {
	Marks    []models.MarkRecord           `json:"marks"`
	Average  float64                       `json:"average"`
	Warnings []models.DataIntegrityWarning `json:"warnings"`
}
