package models

import "time"

// DefaultMaxScore applies when a mark is recorded without an explicit maximum.
const DefaultMaxScore = 100.0

// Mark is a score for one student in one subject of an exam.
type Mark struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ExamType   string    `db:"exam_type" json:"exam_type"`
	Subject    string    `db:"subject" json:"subject"`
	Score      float64   `db:"score" json:"score"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	EnteredBy  *string   `db:"entered_by" json:"entered_by,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// MarkRecord extends a mark with student display fields, NULL when orphaned.
type MarkRecord struct {
	Mark
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
	RollNumber  *string `db:"roll_number" json:"roll_number,omitempty"`
	Class       *string `db:"class" json:"class,omitempty"`
}

// Orphaned reports whether the student reference could not be joined.
func (r MarkRecord) Orphaned() bool {
	return r.StudentName == nil
}

// MarkSort selects the ordering of mark listings.
type MarkSort string

const (
	MarkSortRecent MarkSort = "recent"
	MarkSortScore  MarkSort = "score"
)

// MarkFilter scopes mark queries.
type MarkFilter struct {
	StudentID string
	ExamType  string
	SortBy    MarkSort
}
