package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/validation"
)

const (
	loginKindStaff   = "staff"
	loginKindStudent = "student"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// AuthConfig defines configuration for token issuance.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// CreateStaffRequest provisions a staff account.
type CreateStaffRequest struct {
	Username string          `json:"username" validate:"notblank,max=64"`
	Password string          `json:"password" validate:"required,min=6,max=72"`
	Role     models.UserRole `json:"role" validate:"required,staff_role"`
}

// AuthService provides login, token and identity use cases.
type AuthService struct {
	users      authUserRepository
	enrollment *EnrollmentService
	audit      *AuditService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, enrollment *EnrollmentService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 7 * 24 * time.Hour
	}
	return &AuthService{users: users, enrollment: enrollment, audit: audit, metrics: metrics, validator: validate, logger: logger, config: config}
}

// Login authenticates a staff account and issues a token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid login payload")
	}

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if isNotFound(err) {
			s.metrics.RecordLogin(loginKindStaff, LoginOutcomeFailure)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if !checkPassword(user.PasswordHash, req.Password) {
		s.metrics.RecordLogin(loginKindStaff, LoginOutcomeFailure)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	session, err := s.issue(user.ID, user.Role, models.UserInfo{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(loginKindStaff, LoginOutcomeSuccess)
	s.audit.Record(ctx, AuditEntry{Actor: authz.Caller{ID: user.ID, Role: user.Role}, Action: models.AuditActionLogin, Resource: "auth", ResourceID: user.ID})
	return session, nil
}

// StudentLogin authenticates an approved student. First-time students who
// present their roll number receive a setup request instead of a session.
func (s *AuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.StudentLoginResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid login payload")
	}

	auth, err := s.enrollment.Authenticate(ctx, req.RollNumber, req.Password)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidCredentials) {
			s.metrics.RecordLogin(loginKindStudent, LoginOutcomeFailure)
		}
		return nil, err
	}
	if auth.NeedsSetup {
		s.metrics.RecordLogin(loginKindStudent, LoginOutcomeNeedsSetup)
		return &models.StudentLoginResult{
			NeedsPasswordSetup: true,
			StudentID:          auth.Student.ID,
			RollNumber:         auth.Student.RollNumber,
			Message:            "please set your password",
		}, nil
	}

	session, err := s.issue(auth.Student.ID, models.RoleStudent, studentInfo(auth.Student))
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(loginKindStudent, LoginOutcomeSuccess)
	return &models.StudentLoginResult{Session: session}, nil
}

// CompleteSetup stores the student's new credential and signs them in.
func (s *AuthService) CompleteSetup(ctx context.Context, req models.SetupPasswordRequest) (*models.LoginResponse, error) {
	student, err := s.enrollment.CompleteSetup(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(student.ID, models.RoleStudent, studentInfo(student))
}

// Me describes the authenticated principal.
func (s *AuthService) Me(ctx context.Context, caller authz.Caller) (*models.UserInfo, error) {
	if caller.IsStudent() {
		student, err := s.enrollment.Get(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		info := studentInfo(student)
		return &info, nil
	}

	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return &models.UserInfo{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// CreateStaff provisions an admin or teacher account.
func (s *AuthService) CreateStaff(ctx context.Context, req CreateStaffRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid staff payload")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: req.Username, PasswordHash: hash, Role: req.Role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, appErrors.Validation(err, repository.ErrDuplicateUsername.Error())
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}
	return user, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) issue(subject string, role models.UserRole, info models.UserInfo) (*models.LoginResponse, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: subject,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	return &models.LoginResponse{
		Token:     signed,
		ExpiresIn: int64(s.config.Expiry.Seconds()),
		IssuedAt:  issuedAt,
		User:      info,
	}, nil
}

func studentInfo(student *models.Student) models.UserInfo {
	return models.UserInfo{
		ID:         student.ID,
		Name:       student.Name,
		RollNumber: student.RollNumber,
		Email:      student.Email,
		Class:      student.Class,
		Role:       models.RoleStudent,
	}
}
