package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/config"
	"github.com/simp-lee/marketdesk/internal/middleware"
	"github.com/simp-lee/marketdesk/internal/module/exchange"
	"github.com/simp-lee/marketdesk/internal/module/message"
	"github.com/simp-lee/marketdesk/internal/module/user"
	"github.com/simp-lee/marketdesk/internal/workspace"
	"github.com/simp-lee/marketdesk/web"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	store  *workspace.Store
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New wires an App from cfg: logging, the backend client, the session store
// shared by every collection, the collection modules, middleware, templates
// and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	a, err := assemble(cfg, log)
	if err != nil {
		if cerr := log.Close(); cerr != nil {
			slog.Error("logger close error", slog.Any("error", cerr))
		}
		return nil, err
	}
	return a, nil
}

func assemble(cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	client, err := config.SetupBackend(&cfg.Backend, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup backend: %w", err)
	}

	csrfSecret, err := csrfSecretFor(cfg.Server.Mode, cfg.Server.CSRFSecret, log.Logger)
	if err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg, log.Logger)
	if err != nil {
		return nil, err
	}

	store, services, modules := buildCollections(cfg, client)
	dashboard := make([]StatsSource, len(services))
	for i, s := range services {
		dashboard[i] = s
	}
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    modules,
		Dashboard:  dashboard,
		Sessions:   store,
		Backend:    client,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	log.Info("dashboard ready",
		slog.Int("collections", len(services)),
		slog.Bool("demo_fallback", cfg.Listing.DemoFallback),
		slog.Duration("session_ttl", cfg.Listing.TTL()),
	)
	return &App{engine: engine, store: store, logger: log, cfg: cfg}, nil
}

// buildCollections creates one service and one module per collection. All
// of them share a single session store and backend client.
func buildCollections(cfg *config.Config, client collection.Backend) (*workspace.Store, []*collection.Service, []Module) {
	defSize, maxSize := cfg.Listing.PageSizes()
	resources := []*collection.Resource{user.Resource(), exchange.Resource(), message.Resource()}
	store := workspace.NewStore(
		cfg.Listing.Sessions(),
		cfg.Listing.TTL(),
		collection.NewFactory(defSize, cfg.Listing.Tag(), resources...),
	)

	opts := collection.Options{}
	if cfg.Listing.DemoFallback {
		opts.DemoRows = cfg.Listing.DemoRows()
	}
	services := make([]*collection.Service, len(resources))
	for i, res := range resources {
		services[i] = collection.NewService(res, client, store, opts)
	}
	modules := []Module{
		user.NewModule(services[0], maxSize),
		exchange.NewModule(services[1], maxSize),
		message.NewModule(services[2], maxSize),
	}
	return store, services, modules
}

// newEngine builds the gin engine with the middleware chain and the HTML
// renderer. Templates are re-parsed on every request in debug mode.
func newEngine(cfg *config.Config, log *slog.Logger) (*gin.Engine, error) {
	timeout, err := effectiveServerTimeout(cfg.Server.Timeout)
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(cfg.Server.TrustRequestID),
		middleware.Session(),
		middleware.Logger(log),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, &cfg.Server.CORS)),
		middleware.Timeout(timeout),
	)

	debug := cfg.Server.Mode == gin.DebugMode
	fsys := fs.FS(web.EmbeddedFS)
	if debug {
		if fsys, err = resolveDebugWebFS(); err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	}
	renderer, err := NewTemplateRenderer(fsys, debug)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer
	return engine, nil
}

// csrfSecretFor returns the configured secret. Outside release mode a
// placeholder is replaced by a random secret that changes on every restart.
func csrfSecretFor(mode, configured string, log *slog.Logger) (string, error) {
	if !isPlaceholderCSRFSecret(configured) {
		return configured, nil
	}
	if mode == gin.ReleaseMode {
		return "", errors.New("csrf_secret must be a non-placeholder value in release mode")
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	return hex.EncodeToString(b), nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env", "change-me-in-production":
		return true
	default:
		return false
	}
}

// resolveCORSConfig builds the API CORS policy. In release mode, when no
// allowlist is configured, cross-origin requests are denied.
func resolveCORSConfig(mode string, cors *config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()
	if cors == nil {
		cors = &config.CORSConfig{}
	}

	switch {
	case len(cors.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cors.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}
	corsConfig.AllowCredentials = cors.AllowCredentials
	if d, err := time.ParseDuration(cors.MaxAge); err == nil && d > 0 {
		corsConfig.MaxAge = d
	}

	return corsConfig
}

// effectiveServerTimeout returns the per-request deadline; 0 disables it.
func effectiveServerTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid server.timeout %q: %w", v, err)
	}
	return d, nil
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts the server down with
// a 5 second grace period, empties the session store and closes the logger.
func (a *App) Run() error {
	switch {
	case a == nil:
		return errors.New("app is nil")
	case a.cfg == nil:
		return errors.New("app config is nil")
	case a.engine == nil:
		return errors.New("app engine is nil")
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log().Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log().Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log().Error("server shutdown error", slog.Any("error", err))
		}
		cancel()
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	a.release()
	return runErr
}

func (a *App) release() {
	if a.store != nil {
		a.log().Info("session store released", slog.Int("sessions", a.store.Len()))
		a.store.Purge()
	}
	a.log().Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	return slog.Default()
}
