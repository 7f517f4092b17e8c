package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/pkg"
)

func TestTimeout(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		handler    gin.HandlerFunc
		wantStatus int
		wantPkg    bool
	}{
		{
			name:    "fast handler unaffected",
			timeout: 50 * time.Millisecond,
			handler: func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:    "handler giving up on deadline gets 408",
			timeout: 5 * time.Millisecond,
			handler: func(c *gin.Context) {
				<-c.Request.Context().Done()
			},
			wantStatus: http.StatusRequestTimeout,
			wantPkg:    true,
		},
		{
			name:    "disabled keeps request context",
			timeout: 0,
			handler: func(c *gin.Context) {
				if _, ok := c.Request.Context().Deadline(); ok {
					c.Status(http.StatusInternalServerError)
					return
				}
				c.Status(http.StatusNoContent)
			},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Timeout(tt.timeout))
			r.GET("/test", tt.handler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !tt.wantPkg {
				return
			}
			var resp pkg.Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json decode error: %v", err)
			}
			if resp.Code != http.StatusRequestTimeout || resp.Message != "request timeout" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}
