package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is the gin context key under which the request ID is stored.
const requestIDKey = "request_id"

// RequestID returns a Gin middleware that assigns every request a UUID,
// honouring an X-Request-ID header supplied by the caller. The ID is echoed
// in the response and available to downstream middleware via GetRequestID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// GetRequestID returns the request ID assigned by the RequestID middleware,
// or an empty string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
