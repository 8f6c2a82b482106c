package middleware

import (
	"rentflow-backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates X-Request-ID or generates a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(shared.CtxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
