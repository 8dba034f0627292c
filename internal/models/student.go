package models

import "time"

// StudentStatus is the enrollment lifecycle state of a student.
type StudentStatus string

const (
	StudentStatusPending  StudentStatus = "pending"
	StudentStatusApproved StudentStatus = "approved"
	StudentStatusRejected StudentStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusPending, StudentStatusApproved, StudentStatusRejected:
		return true
	default:
		return false
	}
}

// Student represents a learner who enrolled or was registered by an administrator.
type Student struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	RollNumber   string        `db:"roll_number" json:"roll_number"`
	Email        string        `db:"email" json:"email"`
	PasswordHash *string       `db:"password_hash" json:"-"`
	Class        string        `db:"class" json:"class"`
	Phone        *string       `db:"phone" json:"phone,omitempty"`
	Address      *string       `db:"address" json:"address,omitempty"`
	Status       StudentStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	ApprovedAt   *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy   *string       `db:"approved_by" json:"approved_by,omitempty"`
}

// HasCredential reports whether a password has been set for the student.
func (s *Student) HasCredential() bool {
	return s != nil && s.PasswordHash != nil && *s.PasswordHash != ""
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Class    string
	Status   *StudentStatus
	Page     int
	PageSize int
}

// StudentTransition describes a status change applied by an administrator.
type StudentTransition struct {
	Status     StudentStatus
	ApprovedAt *time.Time
	ApprovedBy string
}

// StudentClassCount is the number of students in a class label.
type StudentClassCount struct {
	Class string `db:"class" json:"class"`
	Count int    `db:"count" json:"count"`
}

// StudentStats summarises the roster by status.
type StudentStats struct {
	Total             int                 `json:"total"`
	Approved          int                 `json:"approved"`
	Pending           int                 `json:"pending"`
	Rejected          int                 `json:"rejected"`
	ClassDistribution []StudentClassCount `json:"class_distribution"`
}

// StudentStatusCount is a row of the per-status roster count.
type StudentStatusCount struct {
	Status StudentStatus `db:"status"`
	Count  int           `db:"count"`
}
