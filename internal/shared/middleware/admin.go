package middleware

import (
	"rentflow-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// RequireRoles allows the request only when the role set by AuthMiddleware is one of roles
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "access denied for role "+role)
		c.Abort()
	}
}
