package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Auth       *AuthHandler
	Students   *StudentHandler
	Attendance *AttendanceHandler
	Marks      *MarkHandler
	Dashboard  *DashboardHandler
	Reports    *ReportHandler
}

// RouteMiddleware carries the middleware routes depend on.
type RouteMiddleware struct {
	Auth              gin.HandlerFunc
	StaffLoginLimit   gin.HandlerFunc
	StudentLoginLimit gin.HandlerFunc
}

// RegisterRoutes mounts every API route on api. Each protected route names
// the capabilities its callers need.
func RegisterRoutes(api gin.IRouter, h Handlers, mw RouteMiddleware) {
	can := middleware.RequireCapability

	auth := api.Group("/auth")
	auth.POST("/login", chain(mw.StaffLoginLimit, h.Auth.Login)...)
	auth.POST("/student/login", chain(mw.StudentLoginLimit, h.Auth.StudentLogin)...)
	auth.POST("/student/setup-password", chain(mw.StudentLoginLimit, h.Auth.CompleteSetup)...)
	auth.GET("/me", mw.Auth, h.Auth.Me)
	auth.POST("/users", mw.Auth, can(authz.CanManageStaff), h.Auth.CreateStaff)

	api.POST("/enroll", h.Students.Enroll)

	students := api.Group("/students", mw.Auth)
	students.GET("", can(authz.CanViewStudents), h.Students.List)
	students.POST("", can(authz.CanManageStudents), h.Students.Create)
	students.GET("/pending", can(authz.CanViewPending), h.Students.Pending)
	students.GET("/stats", can(authz.CanViewAllStudents), h.Students.Stats)
	students.POST("/bulk-approve", can(authz.CanApproveEnrollment), h.Students.BulkApprove)
	students.POST("/bulk-reject", can(authz.CanApproveEnrollment), h.Students.BulkReject)
	students.GET("/:id", can(authz.CanViewStudents), h.Students.Get)
	students.PUT("/:id", can(authz.CanManageStudents), h.Students.Update)
	students.DELETE("/:id", can(authz.CanManageStudents), h.Students.Delete)
	students.PATCH("/:id/approve", can(authz.CanApproveEnrollment), h.Students.Approve)
	students.PATCH("/:id/reject", can(authz.CanApproveEnrollment), h.Students.Reject)
	students.PUT("/:id/password", can(authz.CanSetStudentPasswords), h.Students.SetPassword)

	attendance := api.Group("/attendance", mw.Auth)
	attendance.POST("", can(authz.CanRecordAttendance), h.Attendance.Mark)
	attendance.POST("/bulk", can(authz.CanRecordAttendance), h.Attendance.MarkBulk)
	attendance.GET("/date/:date", can(authz.CanViewAttendance), h.Attendance.ByDate)
	attendance.GET("/student/:id", can(authz.CanViewAttendance), h.Attendance.ByStudent)
	attendance.GET("/student/:id/monthly", can(authz.CanViewAttendance), h.Attendance.Monthly)

	marks := api.Group("/marks", mw.Auth)
	marks.POST("", can(authz.CanRecordMarks), h.Marks.Add)
	marks.GET("", can(authz.CanViewMarks), h.Marks.List)
	marks.GET("/student/:id", can(authz.CanViewMarks), h.Marks.ByStudent)
	marks.GET("/exam/:examType", can(authz.CanViewMarks), h.Marks.ByExam)
	marks.GET("/rank/:examType", can(authz.CanViewMarks), h.Marks.Rank)

	api.GET("/dashboard/stats", mw.Auth, can(authz.CanViewDashboard), h.Dashboard.Stats)

	reports := api.Group("/reports", mw.Auth)
	reports.GET("/student/:id", can(authz.CanViewReport), h.Reports.StudentReport)
	reports.GET("/attendance", can(authz.CanViewAttendance), h.Reports.AttendanceReport)
	reports.GET("/marks", can(authz.CanViewMarks), h.Reports.MarksReport)
}

// chain drops nil middleware so optional limiters can be left unset.
func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	result := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			result = append(result, h)
		}
	}
	return result
}
