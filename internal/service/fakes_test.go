package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
)

func init() {
	passwordCost = bcrypt.MinCost
}

type fakeStudentRepo struct {
	mu       sync.Mutex
	students map[string]*models.Student
	order    []string
}

func newFakeStudentRepo(students ...*models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: map[string]*models.Student{}}
	for _, s := range students {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		repo.students[s.ID] = s
		repo.order = append(repo.order, s.ID)
	}
	return repo
}

func (r *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.Student{}
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.students[r.order[i]]
		if s == nil {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.Class != "" && s.Class != filter.Class {
			continue
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.RollNumber), q) && !strings.Contains(strings.ToLower(s.Email), q) {
				continue
			}
		}
		result = append(result, *s)
	}
	return result, len(result), nil
}

func (r *fakeStudentRepo) ListByStatus(ctx context.Context, status models.StudentStatus) ([]models.Student, error) {
	students, _, err := r.List(ctx, models.StudentFilter{Status: &status})
	return students, err
}

func (r *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStudentRepo) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.RollNumber == rollNumber {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeStudentRepo) ExistsByRollNumber(ctx context.Context, rollNumber, excludeID string) (bool, error) {
	return r.exists(func(s *models.Student) bool { return s.RollNumber == rollNumber }, excludeID), nil
}

func (r *fakeStudentRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(func(s *models.Student) bool { return s.Email == email }, excludeID), nil
}

func (r *fakeStudentRepo) exists(match func(*models.Student) bool, excludeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.students {
		if id != excludeID && match(s) {
			return true
		}
	}
	return false
}

func (r *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.RollNumber == student.RollNumber {
			return repository.ErrDuplicateRollNumber
		}
		if s.Email == student.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	copied := *student
	r.students[student.ID] = &copied
	r.order = append(r.order, student.ID)
	return nil
}

func (r *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	current.Name, current.RollNumber, current.Email, current.Class = student.Name, student.RollNumber, student.Email, student.Class
	current.Phone, current.Address = student.Phone, student.Address
	return nil
}

func (r *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	return nil
}

func (r *fakeStudentRepo) SetStatus(ctx context.Context, ids []string, transition models.StudentTransition) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modified := []string{}
	for _, id := range ids {
		s, ok := r.students[id]
		if !ok {
			continue
		}
		s.Status = transition.Status
		s.ApprovedAt = transition.ApprovedAt
		approver := transition.ApprovedBy
		s.ApprovedBy = &approver
		modified = append(modified, id)
	}
	return modified, nil
}

func (r *fakeStudentRepo) SetPassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.PasswordHash = &passwordHash
	return nil
}

func (r *fakeStudentRepo) CountByStatus(ctx context.Context) ([]models.StudentStatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[models.StudentStatus]int{}
	for _, s := range r.students {
		counts[s.Status]++
	}
	result := []models.StudentStatusCount{}
	for status, count := range counts {
		result = append(result, models.StudentStatusCount{Status: status, Count: count})
	}
	return result, nil
}

func (r *fakeStudentRepo) ClassDistribution(ctx context.Context, status models.StudentStatus) ([]models.StudentClassCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, s := range r.students {
		if s.Status == status {
			counts[s.Class]++
		}
	}
	result := []models.StudentClassCount{}
	for class, count := range counts {
		result = append(result, models.StudentClassCount{Class: class, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Class < result[j].Class })
	return result, nil
}

func (r *fakeStudentRepo) StatusByIDs(ctx context.Context, ids []string) (map[string]models.StudentStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := map[string]models.StudentStatus{}
	for _, id := range ids {
		if s, ok := r.students[id]; ok {
			result[id] = s.Status
		}
	}
	return result, nil
}

func (r *fakeStudentRepo) RecentApprovals(ctx context.Context, limit int) ([]models.RecentApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	approvals := []models.RecentApproval{}
	for _, s := range r.students {
		if s.Status == models.StudentStatusApproved {
			approvals = append(approvals, models.RecentApproval{ID: s.ID, Name: s.Name, RollNumber: s.RollNumber, Class: s.Class, ApprovedAt: s.ApprovedAt})
		}
	}
	sort.Slice(approvals, func(i, j int) bool {
		if approvals[i].ApprovedAt == nil || approvals[j].ApprovedAt == nil {
			return approvals[j].ApprovedAt == nil
		}
		return approvals[i].ApprovedAt.After(*approvals[j].ApprovedAt)
	})
	if len(approvals) > limit {
		approvals = approvals[:limit]
	}
	return approvals, nil
}

func (r *fakeStudentRepo) get(id string) *models.Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.students[id]
}

func approvedStudent(name, roll, class string) *models.Student {
	return &models.Student{ID: uuid.NewString(), Name: name, RollNumber: roll, Email: strings.ToLower(roll) + "@school.test", Class: class, Status: models.StudentStatusApproved}
}

type fakeAttendanceRepo struct {
	mu       sync.Mutex
	students *fakeStudentRepo
	records  []*models.Attendance
	failFor  map[string]error
}

func newFakeAttendanceRepo(students *fakeStudentRepo) *fakeAttendanceRepo {
	return &fakeAttendanceRepo{students: students, failFor: map[string]error{}}
}

func (r *fakeAttendanceRepo) Upsert(ctx context.Context, record *models.Attendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsert(record)
}

func (r *fakeAttendanceRepo) upsert(record *models.Attendance) error {
	if err, ok := r.failFor[record.StudentID]; ok {
		return err
	}
	for _, existing := range r.records {
		if existing.StudentID == record.StudentID && existing.Date.Equal(record.Date) {
			existing.Status = record.Status
			existing.MarkedBy = record.MarkedBy
			record.ID = existing.ID
			return nil
		}
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

func (r *fakeAttendanceRepo) BulkUpsert(ctx context.Context, records []*models.Attendance) (map[int]error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	failures := map[int]error{}
	for i, record := range records {
		if err := r.upsert(record); err != nil {
			failures[i] = err
		}
	}
	return failures, nil
}

func (r *fakeAttendanceRepo) ListRecords(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.AttendanceRecord{}
	for i := len(r.records) - 1; i >= 0; i-- {
		a := r.records[i]
		if !matchesAttendance(*a, filter) {
			continue
		}
		record := models.AttendanceRecord{Attendance: *a}
		if s := r.students.get(a.StudentID); s != nil {
			name, roll, class, status := s.Name, s.RollNumber, s.Class, s.Status
			record.StudentName, record.RollNumber, record.Class, record.StudentStatus = &name, &roll, &class, &status
		}
		result = append(result, record)
	}
	return result, nil
}

func (r *fakeAttendanceRepo) ListForStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.Attendance{}
	for _, a := range r.records {
		if matchesAttendance(*a, filter) {
			result = append(result, *a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *fakeAttendanceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func matchesAttendance(a models.Attendance, filter models.AttendanceFilter) bool {
	if filter.StudentID != "" && a.StudentID != filter.StudentID {
		return false
	}
	if filter.DateFrom != nil && a.Date.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && a.Date.After(*filter.DateTo) {
		return false
	}
	return true
}

type fakeMarkRepo struct {
	mu       sync.Mutex
	students *fakeStudentRepo
	marks    []models.Mark
}

func newFakeMarkRepo(students *fakeStudentRepo) *fakeMarkRepo {
	return &fakeMarkRepo{students: students}
}

func (r *fakeMarkRepo) Create(ctx context.Context, mark *models.Mark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.RecordedAt.IsZero() {
		mark.RecordedAt = time.Now().UTC().Add(time.Duration(len(r.marks)) * time.Second)
	}
	r.marks = append(r.marks, *mark)
	return nil
}

func (r *fakeMarkRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.Mark{}
	for i := len(r.marks) - 1; i >= 0; i-- {
		if r.marks[i].StudentID == studentID {
			result = append(result, r.marks[i])
		}
	}
	return result, nil
}

func (r *fakeMarkRepo) ListRecords(ctx context.Context, filter models.MarkFilter) ([]models.MarkRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []models.MarkRecord{}
	for i := len(r.marks) - 1; i >= 0; i-- {
		m := r.marks[i]
		if filter.StudentID != "" && m.StudentID != filter.StudentID {
			continue
		}
		if filter.ExamType != "" && m.ExamType != filter.ExamType {
			continue
		}
		record := models.MarkRecord{Mark: m}
		if s := r.students.get(m.StudentID); s != nil {
			name, roll, class := s.Name, s.RollNumber, s.Class
			record.StudentName, record.RollNumber, record.Class = &name, &roll, &class
		}
		result = append(result, record)
	}
	if filter.SortBy == models.MarkSortScore {
		sort.SliceStable(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	}
	return result, nil
}

// addOrphan stores a mark whose student does not exist.
func (r *fakeMarkRepo) addOrphan(examType string, score float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks = append(r.marks, models.Mark{ID: uuid.NewString(), StudentID: uuid.NewString(), ExamType: examType, Subject: "Ghost", Score: score, MaxScore: 100, RecordedAt: time.Now().UTC()})
}
