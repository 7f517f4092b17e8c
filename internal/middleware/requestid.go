package middleware

import (
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/marketdesk/internal/domain"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// RequestID tags every request with an id. The id is echoed in the
// X-Request-ID response header, attached to log records and stored on the
// request context, where the backend client picks it up for outbound calls.
//
// An incoming X-Request-ID is reused only when trustUpstream is set (the
// dashboard sits behind a proxy that assigns ids) and it is well formed.
func RequestID(trustUpstream bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if upstream := c.GetHeader(requestIDHeader); trustUpstream && requestIDPattern.MatchString(upstream) {
			id = upstream
		} else {
			id = uuid.NewString()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		ctx := domain.WithRequestID(c.Request.Context(), id)
		ctx = logger.WithContextAttrs(ctx, slog.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	id, _ := c.Get(requestIDContextKey)
	s, _ := id.(string)
	return s
}
