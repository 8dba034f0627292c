package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// Attendance is the single daily record for a student.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the row with student display fields. The student
// columns are NULL when the referenced student no longer exists.
type AttendanceRecord struct {
	Attendance
	StudentName   *string        `db:"student_name" json:"student_name,omitempty"`
	RollNumber    *string        `db:"roll_number" json:"roll_number,omitempty"`
	Class         *string        `db:"class" json:"class,omitempty"`
	StudentStatus *StudentStatus `db:"student_status" json:"-"`
}

// Orphaned reports whether the student reference could not be joined.
func (r AttendanceRecord) Orphaned() bool {
	return r.StudentName == nil
}

// AttendanceFilter scopes attendance queries.
type AttendanceFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

// AttendanceEntry is one student's status inside a bulk submission.
type AttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,attendance_status"`
}

// AttendanceSummary counts present and absent days.
type AttendanceSummary struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}
