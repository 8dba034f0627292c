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

const markRecordSelect = `SELECT m.id, m.student_id, m.exam_type, m.subject, m.score, m.max_score, m.entered_by, m.recorded_at,
        s.name AS student_name, s.roll_number, s.class
        FROM marks m
        LEFT JOIN students s ON s.id = m.student_id`

// MarkRepository persists exam marks.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Create inserts a mark.
func (r *MarkRepository) Create(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.RecordedAt.IsZero() {
		mark.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO marks (id, student_id, exam_type, subject, score, max_score, entered_by, recorded_at)
        VALUES (:id, :student_id, :exam_type, :subject, :score, :max_score, :entered_by, :recorded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("create mark: %w", translateWriteError(err))
	}
	return nil
}

// ListByStudent returns every mark of one student, most recent first.
func (r *MarkRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error) {
	const query = `SELECT id, student_id, exam_type, subject, score, max_score, entered_by, recorded_at
        FROM marks WHERE student_id = $1 ORDER BY recorded_at DESC`
	marks := []models.Mark{}
	if err := r.db.SelectContext(ctx, &marks, query, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	return marks, nil
}

// ListRecords returns marks joined with student display fields. Orphaned
// marks keep NULL student columns.
func (r *MarkRepository) ListRecords(ctx context.Context, filter models.MarkFilter) ([]models.MarkRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("m.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ExamType != "" {
		where = append(where, fmt.Sprintf("m.exam_type = $%d", len(args)+1))
		args = append(args, filter.ExamType)
	}

	order := "m.recorded_at DESC"
	if filter.SortBy == models.MarkSortScore {
		order = "m.score DESC, m.recorded_at DESC"
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s", markRecordSelect, strings.Join(where, " AND "), order)
	records := []models.MarkRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list mark records: %w", err)
	}
	return records, nil
}
