package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/pkg"
)

// Recovery turns a panic in a handler into a 500 and logs it with the stack.
//
// The answer depends on who asked: htmx requests keep the page as it is and
// get an error toast, browsers get errors/500.html, and API clients get the
// JSON envelope carrying the request id to quote in a report. A panic caused
// by the client hanging up is logged at Warn and nothing is written.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			if brokenPipe(rec) {
				logger.WarnContext(ctx, "client went away", slog.Any("error", rec), slog.String("path", c.Request.URL.Path))
				c.Abort()
				return
			}

			logger.ErrorContext(ctx, "panic recovered",
				slog.Any("panic", rec),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			c.Abort()

			switch {
			case isHTMX(c):
				c.Header("HX-Reswap", "none")
				pkg.Toast(c, "Erreur interne du serveur", domain.NoticeError)
				c.Status(http.StatusInternalServerError)
			case acceptsHTML(c):
				renderHTMLError(c)
			default:
				c.JSON(http.StatusInternalServerError, pkg.Response{
					Code:    http.StatusInternalServerError,
					Message: "internal server error",
					Data:    gin.H{"request_id": GetRequestID(c)},
				})
			}
		}()
		c.Next()
	}
}

func brokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}

// renderHTMLError renders errors/500.html, falling back to plain text when no
// renderer is configured or rendering itself panics.
func renderHTMLError(c *gin.Context) {
	defer func() {
		if recover() != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Erreur interne du serveur"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
