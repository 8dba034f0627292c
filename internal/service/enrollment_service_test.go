package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

var (
	adminCaller   = authz.Caller{ID: "11111111-1111-1111-1111-111111111111", Role: models.RoleAdmin}
	teacherCaller = authz.Caller{ID: "22222222-2222-2222-2222-222222222222", Role: models.RoleTeacher}
)

func enrollRequest(roll, email string) EnrollStudentRequest {
	return EnrollStudentRequest{Name: "Student " + roll, RollNumber: roll, Email: email, Class: "10A"}
}

func TestEnrollCreatesPendingStudent(t *testing.T) {
	repo := newFakeStudentRepo()
	svc := NewEnrollmentService(repo, nil, nil, nil, nil)

	student, err := svc.Enroll(context.Background(), enrollRequest("R-1", "One@School.test"))
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusPending, student.Status)
	assert.Equal(t, "one@school.test", student.Email)

	students, _, err := svc.List(context.Background(), teacherCaller, ListStudentsRequest{})
	require.NoError(t, err)
	assert.Empty(t, students)

	students, _, err = svc.List(context.Background(), adminCaller, ListStudentsRequest{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestEnrollRejectsDuplicates(t *testing.T) {
	repo := newFakeStudentRepo()
	svc := NewEnrollmentService(repo, nil, nil, nil, nil)
	_, err := svc.Enroll(context.Background(), enrollRequest("R-1", "one@school.test"))
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), enrollRequest("R-1", "other@school.test"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, "roll number already exists", appErrors.FromError(err).Message)

	_, err = svc.Enroll(context.Background(), enrollRequest("R-2", "one@school.test"))
	require.Error(t, err)
	assert.Equal(t, "email already exists", appErrors.FromError(err).Message)
}

func TestEnrollValidatesPayload(t *testing.T) {
	svc := NewEnrollmentService(newFakeStudentRepo(), nil, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{Name: " ", RollNumber: "R-1", Email: "bad", Class: "10A"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "name cannot be blank")
}

func TestListForcesApprovedForNonElevatedCallers(t *testing.T) {
	pending := &models.Student{ID: uuid.NewString(), Name: "Pending", RollNumber: "P-1", Email: "p@school.test", Class: "10A", Status: models.StudentStatusPending}
	approved := approvedStudent("Approved", "A-1", "10A")
	svc := NewEnrollmentService(newFakeStudentRepo(pending, approved), nil, nil, nil, nil)

	students, _, err := svc.List(context.Background(), teacherCaller, ListStudentsRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, approved.ID, students[0].ID)

	students, pagination, err := svc.List(context.Background(), adminCaller, ListStudentsRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, pending.ID, students[0].ID)
	assert.Equal(t, 20, pagination.PageSize)

	_, _, err = svc.List(context.Background(), adminCaller, ListStudentsRequest{Status: "graduated"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestApproveStampsApprover(t *testing.T) {
	pending := &models.Student{ID: uuid.NewString(), Name: "Pending", RollNumber: "P-1", Email: "p@school.test", Class: "10A", Status: models.StudentStatusPending}
	repo := newFakeStudentRepo(pending)
	svc := NewEnrollmentService(repo, nil, nil, nil, nil)

	student, err := svc.Approve(context.Background(), adminCaller, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusApproved, student.Status)
	require.NotNil(t, student.ApprovedAt)
	assert.Equal(t, adminCaller.ID, *student.ApprovedBy)

	student, err = svc.Reject(context.Background(), adminCaller, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusRejected, student.Status)
	assert.Nil(t, student.ApprovedAt)
	assert.Equal(t, adminCaller.ID, *student.ApprovedBy)
}

func TestApproveUnknownStudent(t *testing.T) {
	svc := NewEnrollmentService(newFakeStudentRepo(), nil, nil, nil, nil)

	_, err := svc.Approve(context.Background(), adminCaller, uuid.NewString())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Approve(context.Background(), adminCaller, "not-a-uuid")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBulkApproveReportsSkipped(t *testing.T) {
	a := &models.Student{ID: uuid.NewString(), Name: "A", RollNumber: "A-1", Email: "a@school.test", Class: "10A", Status: models.StudentStatusPending}
	b := &models.Student{ID: uuid.NewString(), Name: "B", RollNumber: "B-1", Email: "b@school.test", Class: "10A", Status: models.StudentStatusPending}
	repo := newFakeStudentRepo(a, b)
	svc := NewEnrollmentService(repo, nil, nil, nil, nil)

	missing := uuid.NewString()
	result, err := svc.BulkApprove(context.Background(), adminCaller, BulkTransitionRequest{StudentIDs: []string{a.ID, b.ID, a.ID, missing, "junk"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ModifiedCount)
	assert.ElementsMatch(t, []string{missing, "junk"}, result.Skipped)
	assert.Equal(t, models.StudentStatusApproved, repo.get(b.ID).Status)

	_, err = svc.BulkReject(context.Background(), adminCaller, BulkTransitionRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthenticateRequiresApproval(t *testing.T) {
	pending := &models.Student{ID: uuid.NewString(), Name: "Pending", RollNumber: "P-1", Email: "p@school.test", Class: "10A", Status: models.StudentStatusPending}
	repo := newFakeStudentRepo(pending)
	svc := NewEnrollmentService(repo, nil, nil, nil, nil)
	require.NoError(t, svc.SetCredential(context.Background(), adminCaller, pending.ID, SetCredentialRequest{Password: "secret1"}))

	_, err := svc.Authenticate(context.Background(), "P-1", "secret1")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Approve(context.Background(), adminCaller, pending.ID)
	require.NoError(t, err)

	auth, err := svc.Authenticate(context.Background(), "P-1", "secret1")
	require.NoError(t, err)
	assert.False(t, auth.NeedsSetup)
	assert.Equal(t, pending.ID, auth.Student.ID)

	_, err = svc.Authenticate(context.Background(), "P-1", "wrong")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthenticateBootstrapNeedsSetup(t *testing.T) {
	student := approvedStudent("Fresh", "F-1", "10A")
	svc := NewEnrollmentService(newFakeStudentRepo(student), nil, nil, nil, nil)

	auth, err := svc.Authenticate(context.Background(), "F-1", "F-1")
	require.NoError(t, err)
	assert.True(t, auth.NeedsSetup)

	_, err = svc.Authenticate(context.Background(), "F-1", "guess")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestCompleteSetupThenLogin(t *testing.T) {
	student := approvedStudent("Fresh", "F-1", "10A")
	svc := NewEnrollmentService(newFakeStudentRepo(student), nil, nil, nil, nil)

	_, err := svc.CompleteSetup(context.Background(), models.SetupPasswordRequest{RollNumber: "F-1", TemporaryPassword: "wrong", NewPassword: "newpass"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.CompleteSetup(context.Background(), models.SetupPasswordRequest{RollNumber: "F-1", TemporaryPassword: "F-1", NewPassword: "newpass"})
	require.NoError(t, err)

	auth, err := svc.Authenticate(context.Background(), "F-1", "newpass")
	require.NoError(t, err)
	assert.False(t, auth.NeedsSetup)

	_, err = svc.Authenticate(context.Background(), "F-1", "F-1")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.CompleteSetup(context.Background(), models.SetupPasswordRequest{RollNumber: "F-1", TemporaryPassword: "newpass", NewPassword: "another"})
	require.NoError(t, err)
}

func TestUpdateKeepsStatusAndChecksUniqueness(t *testing.T) {
	a := approvedStudent("A", "A-1", "10A")
	b := approvedStudent("B", "B-1", "10B")
	repo := newFakeStudentRepo(a, b)
	svc := NewEnrollmentService(repo, nil, nil, nil, nil)

	_, err := svc.Update(context.Background(), adminCaller, a.ID, UpdateStudentRequest{Name: "A", RollNumber: "B-1", Email: a.Email, Class: "10A"})
	assert.Equal(t, "roll number already exists", appErrors.FromError(err).Message)

	updated, err := svc.Update(context.Background(), adminCaller, a.ID, UpdateStudentRequest{Name: "Alpha", RollNumber: "A-1", Email: a.Email, Class: "11A"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", updated.Name)
	assert.Equal(t, models.StudentStatusApproved, repo.get(a.ID).Status)
	assert.Equal(t, "11A", repo.get(a.ID).Class)
}

func TestDeleteAndStats(t *testing.T) {
	a := approvedStudent("A", "A-1", "10B")
	b := approvedStudent("B", "B-1", "10A")
	c := &models.Student{ID: uuid.NewString(), Name: "C", RollNumber: "C-1", Email: "c@school.test", Class: "10A", Status: models.StudentStatusPending}
	svc := NewEnrollmentService(newFakeStudentRepo(a, b, c), nil, nil, nil, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, []models.StudentClassCount{{Class: "10A", Count: 1}, {Class: "10B", Count: 1}}, stats.ClassDistribution)

	require.NoError(t, svc.Delete(context.Background(), adminCaller, a.ID))
	err = svc.Delete(context.Background(), adminCaller, a.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
