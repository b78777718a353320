package middleware

import (
	"github.com/gin-gonic/gin"

	"facewatch/internal/idgen"
)

const RequestIDKey = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied IDs so they cannot bloat log lines
const maxRequestIDLen = 64

// RequestID tags each request with an ID, reusing the caller's X-Request-ID when sane
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDKey)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = idgen.NewRequest()
		}
		c.Header(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}
