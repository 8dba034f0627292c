// Package authz maps roles to the capabilities each operation requires.
package authz

import (
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

// Capability names a permission an operation requires.
type Capability string

const (
	CanApproveEnrollment   Capability = "enrollment:approve"
	CanViewPending         Capability = "enrollment:view_pending"
	CanManageStudents      Capability = "student:manage"
	CanViewAllStudents     Capability = "student:view_all"
	CanViewStudents        Capability = "student:view"
	CanRecordAttendance    Capability = "attendance:record"
	CanViewAttendance      Capability = "attendance:view"
	CanRecordMarks         Capability = "marks:record"
	CanViewMarks           Capability = "marks:view"
	CanViewAnyReport       Capability = "report:view_any_student"
	CanViewReport          Capability = "report:view"
	CanViewDashboard       Capability = "dashboard:view"
	CanViewAdminDashboard  Capability = "dashboard:view_admin"
	CanSetStudentPasswords Capability = "student:set_password"
	CanManageStaff         Capability = "staff:manage"
)

var staffCapabilities = []Capability{
	CanViewStudents,
	CanRecordAttendance,
	CanViewAttendance,
	CanRecordMarks,
	CanViewMarks,
	CanViewAnyReport,
	CanViewReport,
	CanViewDashboard,
}

var adminOnly = []Capability{
	CanApproveEnrollment,
	CanViewPending,
	CanManageStudents,
	CanViewAllStudents,
	CanViewAdminDashboard,
	CanSetStudentPasswords,
	CanManageStaff,
}

var grants = map[models.UserRole]map[Capability]struct{}{
	models.RoleAdmin:   setOf(append(append([]Capability{}, staffCapabilities...), adminOnly...)),
	models.RoleTeacher: setOf(staffCapabilities),
	models.RoleStudent: setOf([]Capability{CanViewReport}),
}

func setOf(caps []Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Allows reports whether role holds capability.
func Allows(role models.UserRole, capability Capability) bool {
	_, ok := grants[role][capability]
	return ok
}

// Caller identifies who invokes an operation.
type Caller struct {
	ID   string
	Role models.UserRole
}

// FromClaims builds a caller from verified token claims.
func FromClaims(claims *models.JWTClaims) Caller {
	if claims == nil {
		return Caller{}
	}
	return Caller{ID: claims.UserID, Role: claims.Role}
}

// Can reports whether the caller holds capability.
func (c Caller) Can(capability Capability) bool {
	return Allows(c.Role, capability)
}

// IsStudent reports whether the caller authenticated as a student.
func (c Caller) IsStudent() bool {
	return c.Role == models.RoleStudent
}

// Require returns a forbidden error when the caller lacks any of the capabilities.
func (c Caller) Require(capabilities ...Capability) error {
	if c.ID == "" {
		return appErrors.ErrUnauthorized
	}
	for _, capability := range capabilities {
		if !c.Can(capability) {
			return appErrors.Clone(appErrors.ErrForbidden, "missing capability "+string(capability))
		}
	}
	return nil
}
