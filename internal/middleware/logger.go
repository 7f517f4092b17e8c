package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// quietPrefixes are paths polled by browsers and probes. Their successful
// requests are logged at Debug.
var quietPrefixes = []string{"/static/", "/health"}

// Logger returns a gin middleware that logs each HTTP request: method, path,
// matched route, status, latency, response size and client IP, plus whether
// htmx issued it. The level follows the status: Error for 5xx, Warn for 4xx,
// Info otherwise.
//
// Records go through the Context-aware slog methods so the request_id and
// session_id attached upstream are included.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", max(c.Writer.Size(), 0)),
			slog.String("client_ip", c.ClientIP()),
		}
		if isHTMX(c) {
			attrs = append(attrs, slog.Bool("htmx", true))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case isQuiet(c.Request.URL.Path):
			level = slog.LevelDebug
		}
		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
