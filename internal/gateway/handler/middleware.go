package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doozitravel/gateway/internal/backend"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID adopts the caller's X-Request-ID or mints one, echoes it on the
// response and attaches it to the request context so backend calls forward
// the same id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(backend.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
