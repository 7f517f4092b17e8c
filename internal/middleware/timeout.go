package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/pkg"
)

// Timeout bounds every request with a deadline so outbound backend calls are
// cancelled with it. A handler that gives up without writing gets a 408
// envelope. d <= 0 disables the deadline.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusRequestTimeout, pkg.Response{
				Code:    http.StatusRequestTimeout,
				Message: "request timeout",
			})
		}
	}
}
