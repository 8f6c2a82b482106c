package middleware

import (
	"strings"

	"rentflow-backend/internal/shared"
	"rentflow-backend/internal/shared/response"
	"rentflow-backend/pkg/jwt"
	"rentflow-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer access token and stores user id and role in the context
func AuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		// 2. "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		// 3. Verify
		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			logger.Debug("rejected token: " + err.Error())
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(shared.CtxUserID, claims.UserID)
		c.Set(shared.CtxRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(shared.CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// Role returns the authenticated role set by AuthMiddleware
func Role(c *gin.Context) string {
	return c.GetString(shared.CtxRole)
}
