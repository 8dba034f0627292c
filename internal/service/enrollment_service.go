package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/validation"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListByStatus(ctx context.Context, status models.StudentStatus) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	ExistsByRollNumber(ctx context.Context, rollNumber, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, ids []string, transition models.StudentTransition) ([]string, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	CountByStatus(ctx context.Context) ([]models.StudentStatusCount, error)
	ClassDistribution(ctx context.Context, status models.StudentStatus) ([]models.StudentClassCount, error)
}

// EnrollStudentRequest is the payload for self-enrollment and admin registration.
type EnrollStudentRequest struct {
	Name       string  `json:"name" validate:"notblank,max=255"`
	RollNumber string  `json:"roll_number" validate:"notblank,max=64"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Class      string  `json:"class" validate:"notblank,max=64"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Address    *string `json:"address"`
	Password   *string `json:"password" validate:"omitempty,min=6,max=72"`
}

// UpdateStudentRequest holds the editable profile fields.
type UpdateStudentRequest struct {
	Name       string  `json:"name" validate:"notblank,max=255"`
	RollNumber string  `json:"roll_number" validate:"notblank,max=64"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Class      string  `json:"class" validate:"notblank,max=64"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Address    *string `json:"address"`
}

// ListStudentsRequest carries listing filters.
type ListStudentsRequest struct {
	Search   string `form:"search"`
	Class    string `form:"class"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// BulkTransitionRequest lists students for a bulk approve or reject.
type BulkTransitionRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// BulkTransitionResult reports a bulk approve or reject.
type BulkTransitionResult struct {
	ModifiedCount int      `json:"modified_count"`
	Skipped       []string `json:"skipped"`
}

// SetCredentialRequest carries an administrator-assigned student password.
type SetCredentialRequest struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// StudentAuthentication is the outcome of checking student credentials.
type StudentAuthentication struct {
	Student    *models.Student
	NeedsSetup bool
}

// EnrollmentService owns the student lifecycle and credential bootstrap.
type EnrollmentService struct {
	repo      studentRepository
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo studentRepository, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enroll registers a student in pending status.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest) (*models.Student, error) {
	return s.register(ctx, req)
}

// Create registers a student on behalf of an administrator. The student still
// starts pending and needs an explicit approval.
func (s *EnrollmentService) Create(ctx context.Context, caller authz.Caller, req EnrollStudentRequest) (*models.Student, error) {
	student, err := s.register(ctx, req)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{Actor: caller, Action: models.AuditActionStudentCreate, Resource: "student", ResourceID: student.ID, Payload: student})
	return student, nil
}

func (s *EnrollmentService) register(ctx context.Context, req EnrollStudentRequest) (*models.Student, error) {
	normalizeEnroll(&req)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid student payload")
	}
	if err := s.ensureUnique(ctx, req.RollNumber, req.Email, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Email:      req.Email,
		Class:      req.Class,
		Phone:      req.Phone,
		Address:    req.Address,
		Status:     models.StudentStatusPending,
		CreatedAt:  s.now(),
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		student.PasswordHash = &hash
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, s.writeError(err, "failed to create student")
	}
	return student, nil
}

// Get returns a single student.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Student, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// List returns students visible to caller. Callers without the view-all
// capability only ever see approved students.
func (s *EnrollmentService) List(ctx context.Context, caller authz.Caller, req ListStudentsRequest) ([]models.Student, *models.Pagination, error) {
	filter := models.StudentFilter{
		Search:   strings.TrimSpace(req.Search),
		Class:    strings.TrimSpace(req.Class),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if caller.Can(authz.CanViewAllStudents) {
		if req.Status != "" {
			status := models.StudentStatus(strings.ToLower(req.Status))
			if !status.Valid() {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
			}
			filter.Status = &status
		}
	} else {
		approved := models.StudentStatusApproved
		filter.Status = &approved
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListPending returns students awaiting a decision, newest first.
func (s *EnrollmentService) ListPending(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.ListByStatus(ctx, models.StudentStatusPending)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pending students")
	}
	return students, nil
}

// Update modifies profile fields. Lifecycle status is never changed here.
func (s *EnrollmentService) Update(ctx context.Context, caller authz.Caller, id string, req UpdateStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Class = strings.TrimSpace(req.Class)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.RollNumber, req.Email, id); err != nil {
		return nil, err
	}

	student.Name = req.Name
	student.RollNumber = req.RollNumber
	student.Email = req.Email
	student.Class = req.Class
	student.Phone = req.Phone
	student.Address = req.Address
	if err := s.repo.Update(ctx, student); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, s.writeError(err, "failed to update student")
	}
	s.audit.Record(ctx, AuditEntry{Actor: caller, Action: models.AuditActionStudentUpdate, Resource: "student", ResourceID: id, Payload: req})
	return student, nil
}

// Delete removes a student together with their attendance and marks.
func (s *EnrollmentService) Delete(ctx context.Context, caller authz.Caller, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	s.audit.Record(ctx, AuditEntry{Actor: caller, Action: models.AuditActionStudentDelete, Resource: "student", ResourceID: id})
	return nil
}

// Approve moves a student to approved, stamping time and approver. Approving
// an already approved student re-stamps it.
func (s *EnrollmentService) Approve(ctx context.Context, caller authz.Caller, id string) (*models.Student, error) {
	return s.transitionOne(ctx, caller, id, models.StudentStatusApproved)
}

// Reject moves a student to rejected, recording the approver and clearing any approval time.
func (s *EnrollmentService) Reject(ctx context.Context, caller authz.Caller, id string) (*models.Student, error) {
	return s.transitionOne(ctx, caller, id, models.StudentStatusRejected)
}

// BulkApprove approves every listed student that exists.
func (s *EnrollmentService) BulkApprove(ctx context.Context, caller authz.Caller, req BulkTransitionRequest) (*BulkTransitionResult, error) {
	return s.transitionMany(ctx, caller, req, models.StudentStatusApproved)
}

// BulkReject rejects every listed student that exists.
func (s *EnrollmentService) BulkReject(ctx context.Context, caller authz.Caller, req BulkTransitionRequest) (*BulkTransitionResult, error) {
	return s.transitionMany(ctx, caller, req, models.StudentStatusRejected)
}

func (s *EnrollmentService) transition(status models.StudentStatus, caller authz.Caller) models.StudentTransition {
	transition := models.StudentTransition{Status: status, ApprovedBy: caller.ID}
	if status == models.StudentStatusApproved {
		now := s.now()
		transition.ApprovedAt = &now
	}
	return transition
}

func (s *EnrollmentService) transitionOne(ctx context.Context, caller authz.Caller, id string, status models.StudentStatus) (*models.Student, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	modified, err := s.repo.SetStatus(ctx, []string{id}, s.transition(status, caller))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update student status")
	}
	if len(modified) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.metrics.RecordEnrollmentTransition(status, 1)
	s.audit.Record(ctx, AuditEntry{Actor: caller, Action: auditActionFor(status, false), Resource: "student", ResourceID: id})
	return s.Get(ctx, id)
}

func (s *EnrollmentService) transitionMany(ctx context.Context, caller authz.Caller, req BulkTransitionRequest, status models.StudentStatus) (*BulkTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid student id list")
	}

	seen := make(map[string]struct{}, len(req.StudentIDs))
	candidates := make([]string, 0, len(req.StudentIDs))
	skipped := []string{}
	for _, id := range req.StudentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !validID(id) {
			skipped = append(skipped, id)
			continue
		}
		candidates = append(candidates, id)
	}

	modified, err := s.repo.SetStatus(ctx, candidates, s.transition(status, caller))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update student status")
	}
	updated := make(map[string]struct{}, len(modified))
	for _, id := range modified {
		updated[id] = struct{}{}
	}
	for _, id := range candidates {
		if _, ok := updated[id]; !ok {
			skipped = append(skipped, id)
		}
	}
	if len(skipped) > 0 {
		s.logger.Info("bulk status change skipped unknown students", zap.String("status", string(status)), zap.Strings("skipped", skipped))
	}

	s.metrics.RecordEnrollmentTransition(status, len(modified))
	s.audit.Record(ctx, AuditEntry{Actor: caller, Action: auditActionFor(status, true), Resource: "student", Payload: map[string]interface{}{"student_ids": modified, "skipped": skipped}})
	return &BulkTransitionResult{ModifiedCount: len(modified), Skipped: skipped}, nil
}

func auditActionFor(status models.StudentStatus, bulk bool) string {
	switch {
	case status == models.StudentStatusApproved && bulk:
		return models.AuditActionBulkApprove
	case status == models.StudentStatusApproved:
		return models.AuditActionApprove
	case bulk:
		return models.AuditActionBulkReject
	default:
		return models.AuditActionReject
	}
}

// SetCredential replaces the student's password hash.
func (s *EnrollmentService) SetCredential(ctx context.Context, caller authz.Caller, id string, req SetCredentialRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalidPayload(err, "invalid password payload")
	}
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, hash); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to set password")
	}
	s.audit.Record(ctx, AuditEntry{Actor: caller, Action: models.AuditActionCredentialSet, Resource: "student", ResourceID: id})
	return nil
}

// Authenticate checks student credentials. Only approved students pass. A
// student without a credential may present the roll number once, which
// yields NeedsSetup instead of a session.
func (s *EnrollmentService) Authenticate(ctx context.Context, rollNumber, plaintext string) (*StudentAuthentication, error) {
	student, err := s.approvedByRollNumber(ctx, rollNumber)
	if err != nil {
		return nil, err
	}
	if !student.HasCredential() {
		if plaintext == student.RollNumber {
			return &StudentAuthentication{Student: student, NeedsSetup: true}, nil
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "password not set, use your roll number as temporary password to set up your account")
	}
	if !checkPassword(*student.PasswordHash, plaintext) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}
	return &StudentAuthentication{Student: student}, nil
}

// CompleteSetup stores a new credential after verifying the temporary one:
// the roll number when no credential exists yet, the current password otherwise.
func (s *EnrollmentService) CompleteSetup(ctx context.Context, req models.SetupPasswordRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid setup payload")
	}
	student, err := s.approvedByRollNumber(ctx, req.RollNumber)
	if err != nil {
		return nil, err
	}
	if student.HasCredential() {
		if !checkPassword(*student.PasswordHash, req.TemporaryPassword) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid current password")
		}
	} else if req.TemporaryPassword != student.RollNumber {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid temporary password, use your roll number")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetPassword(ctx, student.ID, hash); err != nil {
		return nil, appErrors.Internal(err, "failed to set password")
	}
	student.PasswordHash = &hash
	s.audit.Record(ctx, AuditEntry{Actor: authz.Caller{ID: student.ID, Role: models.RoleStudent}, Action: models.AuditActionPasswordChange, Resource: "student", ResourceID: student.ID})
	return student, nil
}

func (s *EnrollmentService) approvedByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	student, err := s.repo.FindByRollNumber(ctx, strings.TrimSpace(rollNumber))
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials or student not approved")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if student.Status != models.StudentStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials or student not approved")
	}
	return student, nil
}

// Stats summarises the roster by status with the class distribution of approved students.
func (s *EnrollmentService) Stats(ctx context.Context) (*models.StudentStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count students")
	}
	stats := &models.StudentStats{}
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case models.StudentStatusApproved:
			stats.Approved = c.Count
		case models.StudentStatusPending:
			stats.Pending = c.Count
		case models.StudentStatusRejected:
			stats.Rejected = c.Count
		}
	}
	distribution, err := s.repo.ClassDistribution(ctx, models.StudentStatusApproved)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class distribution")
	}
	stats.ClassDistribution = distribution
	return stats, nil
}

func (s *EnrollmentService) ensureUnique(ctx context.Context, rollNumber, email, excludeID string) error {
	exists, err := s.repo.ExistsByRollNumber(ctx, rollNumber, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate roll number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrValidation, repository.ErrDuplicateRollNumber.Error())
	}
	exists, err = s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrValidation, repository.ErrDuplicateEmail.Error())
	}
	return nil
}

// writeError maps unique violations that raced past ensureUnique.
func (s *EnrollmentService) writeError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateRollNumber):
		return appErrors.Validation(err, repository.ErrDuplicateRollNumber.Error())
	case errors.Is(err, repository.ErrDuplicateEmail):
		return appErrors.Validation(err, repository.ErrDuplicateEmail.Error())
	default:
		return appErrors.Internal(err, message)
	}
}

func normalizeEnroll(req *EnrollStudentRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Class = strings.TrimSpace(req.Class)
}
