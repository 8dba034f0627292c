package models

import "time"

// IntegrityWarningKind names the record type that carried a dangling reference.
type IntegrityWarningKind string

const (
	IntegrityOrphanedAttendance IntegrityWarningKind = "orphaned_attendance"
	IntegrityOrphanedMark       IntegrityWarningKind = "orphaned_mark"
)

// DataIntegrityWarning reports a row excluded from an aggregate because its
// student reference could not be resolved.
type DataIntegrityWarning struct {
	Kind      IntegrityWarningKind `json:"kind"`
	RecordID  string               `json:"record_id"`
	StudentID string               `json:"student_id"`
	Message   string               `json:"message"`
}

// StudentRef carries the display fields of a student inside aggregates.
type StudentRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Class      string `json:"class"`
}

// StudentAverage is the mean score across every mark of a student.
type StudentAverage struct {
	Student   StudentRef `json:"student"`
	Total     float64    `json:"total"`
	MarkCount int        `json:"mark_count"`
	Average   float64    `json:"average"`
}

// RankEntry is one row of an exam ranking.
type RankEntry struct {
	Rank     int        `json:"rank"`
	Student  StudentRef `json:"student"`
	Total    float64    `json:"total"`
	Subjects int        `json:"subjects"`
	Average  float64    `json:"average"`
	Grade    string     `json:"grade"`
}

// DayCount is the present/total attendance for one calendar day.
type DayCount struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Total   int    `json:"total"`
}

// ClassCount is the present/total attendance for one class label.
type ClassCount struct {
	Class   string `json:"class"`
	Present int    `json:"present"`
	Total   int    `json:"total"`
}

// RecentApproval lists a recently approved student.
type RecentApproval struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	RollNumber string     `db:"roll_number" json:"roll_number"`
	Class      string     `db:"class" json:"class"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
}
