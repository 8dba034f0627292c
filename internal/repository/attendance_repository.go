package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const attendanceRecordSelect = `SELECT a.id, a.student_id, a.date, a.status, a.marked_by, a.created_at, a.updated_at,
        s.name AS student_name, s.roll_number, s.class, s.status AS student_status
        FROM attendance a
        LEFT JOIN students s ON s.id = a.student_id`

const upsertAttendanceQuery = `INSERT INTO attendance (id, student_id, date, status, marked_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

// DATE columns are bound as calendar strings so the session time zone cannot
// shift the day.
const dateLayout = "2006-01-02"

// AttendanceRepository persists daily attendance, one row per student and day.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

type queryRower interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// Upsert creates or overwrites the record for (student, date).
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) error {
	return upsertAttendance(ctx, r.db, record)
}

// BulkUpsert writes every record inside one transaction. Each row runs under
// its own savepoint so a failing row does not abort the rest; per-row errors
// are returned keyed by input index.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []*models.Attendance) (map[int]error, error) {
	failures := make(map[int]error)
	if len(records) == 0 {
		return failures, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attendance batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, record := range records {
		if _, err = tx.ExecContext(ctx, "SAVEPOINT attendance_entry"); err != nil {
			return nil, fmt.Errorf("savepoint attendance entry: %w", err)
		}
		if rowErr := upsertAttendance(ctx, tx, record); rowErr != nil {
			failures[i] = rowErr
			if _, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT attendance_entry"); err != nil {
				return nil, fmt.Errorf("rollback attendance entry: %w", err)
			}
			continue
		}
		if _, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT attendance_entry"); err != nil {
			return nil, fmt.Errorf("release attendance entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance batch: %w", err)
	}
	return failures, nil
}

func upsertAttendance(ctx context.Context, q queryRower, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.UpdatedAt = now
	row := q.QueryRowxContext(ctx, upsertAttendanceQuery, record.ID, record.StudentID, record.Date.Format(dateLayout), record.Status, record.MarkedBy, now)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return fmt.Errorf("upsert attendance: %w", translateWriteError(err))
	}
	return nil
}

// ListRecords returns attendance joined with student display fields, newest
// day first. Rows whose student is missing keep NULL student columns.
func (r *AttendanceRepository) ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where, args := attendanceConditions("a.", filter)
	query := fmt.Sprintf("%s WHERE %s ORDER BY a.date DESC, s.class, s.name", attendanceRecordSelect, where)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// ListForStudent returns the bare attendance rows of one student, most recent first.
func (r *AttendanceRepository) ListForStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	where, args := attendanceConditions("", filter)
	query := fmt.Sprintf(`SELECT id, student_id, date, status, marked_by, created_at, updated_at FROM attendance WHERE %s ORDER BY date DESC`, where)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	records := []models.Attendance{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

func attendanceConditions(prefix string, filter models.AttendanceFilter) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("%sstudent_id = $%d", prefix, len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("%sdate >= $%d", prefix, len(args)+1))
		args = append(args, filter.DateFrom.Format(dateLayout))
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("%sdate <= $%d", prefix, len(args)+1))
		args = append(args, filter.DateTo.Format(dateLayout))
	}
	return strings.Join(where, " AND "), args
}
