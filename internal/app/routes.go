package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/middleware"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/web"
)

// Pinger reports whether the marketplace backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource feeds one card of the dashboard home page.
type StatsSource interface {
	Stats(ctx context.Context, session string) (collection.Stats, error)
}

// SessionStore forgets the list state of a browser session.
type SessionStore interface {
	Drop(session string)
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules    []Module
	Dashboard  []StatsSource
	Sessions   SessionStore
	Backend    Pinger
	Mode       string // "debug" or "release"
	CSRFSecret string
}

// RegisterRoutes mounts static assets, health, the dashboard home and every
// collection module on r.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if err := deps.validate(); err != nil {
		return err
	}

	if err := mountStatic(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}
	r.GET("/health", healthHandler(deps.Backend))

	csrf := middleware.CSRF(deps.CSRFSecret)
	r.GET("/", csrf, homeHandler(deps.Dashboard))

	api := r.Group("/api/v1")
	pages := r.Group("/", csrf)
	if deps.Sessions != nil {
		reset := resetHandler(deps.Sessions)
		api.DELETE("/session", reset)
		pages.POST("/session/reset", reset)
	}
	for _, m := range deps.Modules {
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(noRouteHandler())
	return nil
}

func (d *RouteDeps) validate() error {
	switch {
	case d == nil:
		return errors.New("route dependencies are nil")
	case len(d.Modules) == 0:
		return errors.New("at least one module is required")
	case strings.TrimSpace(d.CSRFSecret) == "":
		return errors.New("csrf secret is required")
	}
	for i, m := range d.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
	}
	return nil
}

const healthPingTimeout = 2 * time.Second

// healthHandler reports "degraded" with a 503 when the backend does not
// answer a ping.
func healthHandler(backend Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		backendStatus := "ok"
		if err := pingBackend(ctx, backend); err != nil {
			slog.WarnContext(ctx, "health: backend ping failed", slog.Any("error", err))
			backendStatus = "error"
		}

		status, code := "ok", http.StatusOK
		if backendStatus != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"components": gin.H{"backend": backendStatus},
		})
	}
}

func pingBackend(ctx context.Context, backend Pinger) error {
	if backend == nil {
		return errors.New("no backend configured")
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return backend.Ping(ctx)
}

// homeHandler renders the dashboard with one card per collection. A card
// whose rows cannot be loaded is still shown, empty.
func homeHandler(sources []StatsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.GetSessionID(c)
		cards := make([]collection.Stats, 0, len(sources))
		for _, src := range sources {
			st, err := src.Stats(c.Request.Context(), session)
			if err != nil {
				slog.DebugContext(c.Request.Context(), "home: stats unavailable", slog.String("collection", st.Collection), slog.Any("error", err))
			}
			cards = append(cards, st)
		}
		c.HTML(http.StatusOK, "home.html", gin.H{
			"Cards":     cards,
			"CSRFToken": middleware.GetCSRFToken(c),
		})
	}
}

// resetHandler drops every list of the caller's session: filters, sort,
// selection and loaded rows. The next visit of a list fetches it again.
func resetHandler(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.GetSessionID(c)
		if session != "" {
			sessions.Drop(session)
		}
		slog.InfoContext(c.Request.Context(), "session lists reset")

		switch {
		case strings.HasPrefix(c.Request.URL.Path, "/api/"):
			pkg.Success(c, gin.H{"reset": true})
		case c.GetHeader("HX-Request") == "true":
			pkg.Toast(c, "Listes réinitialisées", domain.NoticeSuccess)
			c.Header("HX-Redirect", "/")
			c.Status(http.StatusOK)
		default:
			c.Redirect(http.StatusSeeOther, "/")
		}
	}
}

// noRouteHandler answers unknown API paths with the JSON envelope and
// everything else through renderError.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
			return
		}
		renderError(c, http.StatusNotFound, "not found")
	}
}

// mountStatic serves /static from the source tree in debug mode, so edits
// show up without a rebuild, and from the embedded copy otherwise.
func mountStatic(r *gin.Engine, mode string) error {
	var (
		fsys         fs.FS
		cacheControl string
		err          error
	)
	if mode == gin.DebugMode {
		fsys, err = sourceStaticDir()
	} else {
		fsys, err = fs.Sub(web.EmbeddedFS, "static")
		cacheControl = "public, max-age=86400"
	}
	if err != nil {
		return err
	}
	r.GET("/static/*filepath", staticHandler(http.FS(fsys), cacheControl))
	return nil
}

func sourceStaticDir() (fs.FS, error) {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("locate source tree")
	}
	dir := filepath.Join(filepath.Dir(self), "..", "..", "web", "static")
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("static directory: %w", err)
	}
	return os.DirFS(dir), nil
}

// staticHandler serves files under /static, adding Cache-Control when set.
func staticHandler(fsys http.FileSystem, cacheControl string) gin.HandlerFunc {
	files := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		if cacheControl != "" {
			c.Header("Cache-Control", cacheControl)
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
