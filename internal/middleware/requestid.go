package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation identifier on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID assigns each request a correlation identifier. An incoming
// X-Request-ID is honored so upstream proxies can correlate; otherwise
// a fresh UUID is generated. The identifier is echoed on the response
// header and embedded in every payload.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request's correlation identifier.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
