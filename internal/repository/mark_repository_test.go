package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func TestMarkRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectExec("INSERT INTO marks").
		WithArgs(sqlmock.AnyArg(), "s1", "Final", "Math", 88.5, 100.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mark := &models.Mark{StudentID: "s1", ExamType: "Final", Subject: "Math", Score: 88.5, MaxScore: 100}
	require.NoError(t, repo.Create(context.Background(), mark))
	assert.NotEmpty(t, mark.ID)
	assert.False(t, mark.RecordedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryCreateUnknownStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectExec("INSERT INTO marks").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "marks_student_id_fkey"})

	err := repo.Create(context.Background(), &models.Mark{StudentID: "gone", ExamType: "Final", Subject: "Math"})
	assert.ErrorIs(t, err, ErrUnknownStudent)
}

func TestMarkRepositoryListRecordsByScore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "exam_type", "subject", "score", "max_score", "entered_by", "recorded_at", "student_name", "roll_number", "class"}).
		AddRow("m1", "s1", "Final", "Math", "95.00", "100.00", nil, now, "Student", "R-1", "10A")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND m.exam_type = $1 ORDER BY m.score DESC, m.recorded_at DESC")).
		WithArgs("Final").
		WillReturnRows(rows)

	records, err := repo.ListRecords(context.Background(), models.MarkFilter{ExamType: "Final", SortBy: models.MarkSortScore})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 95.0, records[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
