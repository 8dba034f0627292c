package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const studentColumns = `id, name, roll_number, email, password_hash, class, phone, address, status, created_at, approved_at, approved_by`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters, newest first.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Class != "" {
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, filter.Class)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR roll_number ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	base := fmt.Sprintf("FROM students WHERE %s", strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListByStatus returns every student with the given status, newest first.
func (r *StudentRepository) ListByStatus(ctx context.Context, status models.StudentStatus) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE status = $1 ORDER BY created_at DESC", studentColumns)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, status); err != nil {
		return nil, fmt.Errorf("list students by status: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByRollNumber fetches a student by roll number.
func (r *StudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE roll_number = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, rollNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by roll number: %w", err)
	}
	return &student, nil
}

// StatusByIDs returns the status of each existing student among ids.
func (r *StudentRepository) StatusByIDs(ctx context.Context, ids []string) (map[string]models.StudentStatus, error) {
	result := make(map[string]models.StudentStatus, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []struct {
		ID     string               `db:"id"`
		Status models.StudentStatus `db:"status"`
	}
	if err := r.db.SelectContext(ctx, &rows, "SELECT id, status FROM students WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("student status by ids: %w", err)
	}
	for _, row := range rows {
		result[row.ID] = row.Status
	}
	return result, nil
}

// ExistsByRollNumber checks if a roll number is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsByRollNumber(ctx context.Context, rollNumber, excludeID string) (bool, error) {
	return r.exists(ctx, "roll_number", rollNumber, excludeID)
}

// ExistsByEmail checks if an email is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, "email", email, excludeID)
}

func (r *StudentRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM students WHERE %s = $1", column)
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusPending
	}
	const query = `INSERT INTO students (id, name, roll_number, email, password_hash, class, phone, address, status, created_at)
        VALUES (:id, :name, :roll_number, :email, :password_hash, :class, :phone, :address, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", translateWriteError(err))
	}
	return nil
}

// Update modifies the profile fields of an existing student. Status and
// credentials are changed through dedicated methods.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET name = :name, roll_number = :roll_number, email = :email, class = :class, phone = :phone, address = :address WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", translateWriteError(err))
	}
	return requireAffected(res, "update student")
}

// Delete removes a student; attendance and marks cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res, "delete student")
}

// SetStatus applies a lifecycle transition to every listed student and
// returns the ids that were actually updated.
func (r *StudentRepository) SetStatus(ctx context.Context, ids []string, transition models.StudentTransition) ([]string, error) {
	modified := []string{}
	if len(ids) == 0 {
		return modified, nil
	}
	const query = `UPDATE students SET status = $1, approved_at = $2, approved_by = $3 WHERE id = ANY($4) RETURNING id`
	if err := r.db.SelectContext(ctx, &modified, query, transition.Status, transition.ApprovedAt, nullableString(transition.ApprovedBy), pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("set student status: %w", err)
	}
	return modified, nil
}

// SetPassword replaces the stored credential hash.
func (r *StudentRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("set student password: %w", err)
	}
	return requireAffected(res, "set student password")
}

// CountByStatus returns the number of students per status.
func (r *StudentRepository) CountByStatus(ctx context.Context) ([]models.StudentStatusCount, error) {
	counts := []models.StudentStatusCount{}
	if err := r.db.SelectContext(ctx, &counts, `SELECT status, COUNT(*) AS count FROM students GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	return counts, nil
}

// ClassDistribution counts students with the given status per class label.
func (r *StudentRepository) ClassDistribution(ctx context.Context, status models.StudentStatus) ([]models.StudentClassCount, error) {
	counts := []models.StudentClassCount{}
	const query = `SELECT class, COUNT(*) AS count FROM students WHERE status = $1 GROUP BY class ORDER BY class`
	if err := r.db.SelectContext(ctx, &counts, query, status); err != nil {
		return nil, fmt.Errorf("student class distribution: %w", err)
	}
	return counts, nil
}

// RecentApprovals lists the most recently approved students.
func (r *StudentRepository) RecentApprovals(ctx context.Context, limit int) ([]models.RecentApproval, error) {
	approvals := []models.RecentApproval{}
	const query = `SELECT id, name, roll_number, class, approved_at FROM students
        WHERE status = $1 ORDER BY approved_at DESC NULLS LAST LIMIT $2`
	if err := r.db.SelectContext(ctx, &approvals, query, models.StudentStatusApproved, limit); err != nil {
		return nil, fmt.Errorf("recent approvals: %w", err)
	}
	return approvals, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
