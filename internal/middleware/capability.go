package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/authz"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// RequireCapability rejects callers whose role does not grant every capability.
// It must run after JWT.
func RequireCapability(capabilities ...authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := CallerFrom(c).Require(capabilities...); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
