package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds staff credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StudentLoginRequest holds student credentials.
type StudentLoginRequest struct {
	RollNumber string `json:"roll_number" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// SetupPasswordRequest finalises the credential bootstrap for a student.
type SetupPasswordRequest struct {
	RollNumber        string `json:"roll_number" validate:"required"`
	TemporaryPassword string `json:"temporary_password" validate:"required"`
	NewPassword       string `json:"new_password" validate:"required,min=6,max=72"`
}

// LoginResponse returns the issued token and identity.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
	User      UserInfo  `json:"user"`
}

// StudentLoginResult is either a session or a request to finish credential setup.
type StudentLoginResult struct {
	NeedsPasswordSetup bool           `json:"needs_password_setup"`
	StudentID          string         `json:"student_id,omitempty"`
	RollNumber         string         `json:"roll_number,omitempty"`
	Message            string         `json:"message,omitempty"`
	Session            *LoginResponse `json:"session,omitempty"`
}

// UserInfo describes the authenticated principal in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	Username   string   `json:"username,omitempty"`
	Name       string   `json:"name,omitempty"`
	RollNumber string   `json:"roll_number,omitempty"`
	Email      string   `json:"email,omitempty"`
	Class      string   `json:"class,omitempty"`
	Role       UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
