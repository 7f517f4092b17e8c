package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig is the cross-origin policy of the JSON API.
type CORSConfig struct {
	// AllowOrigins lists the allowed origins. "*" allows any; an empty list
	// allows none.
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	// ExposeHeaders lists response headers readable by a cross-origin
	// script: request and session ids, htmx triggers and export filenames.
	ExposeHeaders    []string
	AllowCredentials bool
	// MaxAge is how long a browser may cache a preflight answer.
	MaxAge time.Duration
}

// DefaultCORSConfig is the permissive development policy.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Requested-With", csrfHeaderName, sessionHeader, "HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger"},
		ExposeHeaders: []string{requestIDHeader, sessionHeader, "HX-Trigger", "HX-Redirect", "Content-Disposition"},
		MaxAge:        24 * time.Hour,
	}
}

// CORSWithConfig applies cfg to requests carrying an Origin header. Requests
// from an origin outside the list get no CORS headers; their preflight is
// answered 403 so the browser fails fast.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	fixed := http.Header{}
	fixed.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
	fixed.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
	if cfg.MaxAge > 0 {
		fixed.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}
	if len(cfg.ExposeHeaders) > 0 {
		fixed.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}
	if cfg.AllowCredentials {
		fixed.Set("Access-Control-Allow-Credentials", "true")
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		c.Writer.Header().Add("Vary", "Origin")
		preflight := c.Request.Method == http.MethodOptions

		switch {
		case wildcard && !cfg.AllowCredentials:
			c.Header("Access-Control-Allow-Origin", "*")
		case wildcard || slices.Contains(cfg.AllowOrigins, origin):
			// Credentials forbid the wildcard, so the origin is echoed.
			c.Header("Access-Control-Allow-Origin", origin)
		case preflight:
			c.AbortWithStatus(http.StatusForbidden)
			return
		default:
			c.Next()
			return
		}

		for k, v := range fixed {
			c.Writer.Header()[k] = v
		}
		if preflight {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
