package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/middleware/requestid"
)

// ClientInfo copies the remote address, user agent and request ID onto the
// request context so services can attach them to audit entries. It must run
// after the request ID middleware.
func ClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithClientInfo(c.Request.Context(), service.ClientInfo{
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			RequestID: requestid.Value(c),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
