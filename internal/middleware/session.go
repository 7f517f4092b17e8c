package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	sessionCookieName = "md_session"
	sessionHeader     = "X-Session-ID"
	sessionContextKey = "session_id"
)

// Session returns a gin middleware that identifies the browser session owning
// the list state. The identifier is a UUID kept in an HttpOnly cookie; API
// clients without cookies may send it in the X-Session-ID header instead.
// An absent or malformed identifier is replaced by a new one.
//
// The session ID is stored in gin.Context under "session_id" and attached to
// the logging context.
func Session() gin.HandlerFunc {
	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		id := ""
		if v, err := c.Cookie(sessionCookieName); err == nil && validSessionID(v) {
			id = v
		} else if v := c.GetHeader(sessionHeader); validSessionID(v) {
			id = v
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		c.Set(sessionContextKey, id)
		c.Header(sessionHeader, id)
		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String("session_id", id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// GetSessionID extracts the session ID from the gin.Context.
// Returns an empty string if the Session middleware did not run.
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get(sessionContextKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
