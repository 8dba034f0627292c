package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Write failures translated from PostgreSQL constraint violations.
var (
	ErrDuplicateRollNumber = errors.New("roll number already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrUnknownStudent      = errors.New("student not found")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var constraintErrors = map[string]error{
	"students_roll_number_key":   ErrDuplicateRollNumber,
	"students_email_key":         ErrDuplicateEmail,
	"users_username_key":         ErrDuplicateUsername,
	"attendance_student_id_fkey": ErrUnknownStudent,
	"marks_student_id_fkey":      ErrUnknownStudent,
}

// translateWriteError maps known constraint violations to sentinel errors and
// returns any other error unchanged.
func translateWriteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if pqErr.Code != pqUniqueViolation && pqErr.Code != pqForeignKeyViolation {
		return err
	}
	if mapped, ok := constraintErrors[pqErr.Constraint]; ok {
		return mapped
	}
	return err
}
