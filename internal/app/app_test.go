package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/config"
	"github.com/simp-lee/marketdesk/internal/listing"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

const testSecret = "Abcd1234!Abcd1234!Abcd1234!Abcd1234!"

type fakeHTTPServer struct {
	listenErr      error
	listenStarted  chan struct{}
	shutdownCalled bool
	stopCh         chan struct{}
	mu             sync.Mutex
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenStarted != nil {
		close(f.listenStarted)
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	if f.stopCh != nil {
		<-f.stopCh
	}
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.mu.Lock()
	f.shutdownCalled = true
	f.mu.Unlock()
	if f.stopCh != nil {
		close(f.stopCh)
	}
	return nil
}

func (f *fakeHTTPServer) wasShutdownCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdownCalled
}

// newBackendServer fakes the marketplace REST API: users answer, everything
// else fails with 500.
func newBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"pagination":{"total":2,"data":[` +
				`{"_id":"u1","first_name":"Awa","last_name":"Diop","status":"actif","role":"vendeur"},` +
				`{"_id":"u2","first_name":"Omar","last_name":"Sow","status":"bloque","role":"agent"}]}}`))
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:       "127.0.0.1",
			Port:       8080,
			Mode:       gin.TestMode,
			CSRFSecret: testSecret,
		},
		Backend: config.BackendConfig{
			BaseURL:   baseURL,
			Timeout:   "2s",
			RetryWait: "1ms",
		},
		Listing: config.ListingConfig{
			DefaultPageSize: 10,
			MaxPageSize:     50,
			DemoFallback:    true,
			DemoSize:        6,
		},
		Log: config.LogConfig{Level: "error", Format: "text"},
	}
}

func cleanupTestApp(t *testing.T, a *App) {
	t.Helper()
	if a != nil && a.logger != nil {
		_ = a.logger.Close()
	}
}

func TestResolveCORSConfig(t *testing.T) {
	tests := []struct {
		name            string
		mode            string
		cors            *config.CORSConfig
		wantOrigins     []string
		wantCredentials bool
		wantMaxAge      time.Duration
	}{
		{"debug default is permissive", gin.DebugMode, &config.CORSConfig{}, []string{"*"}, false, 24 * time.Hour},
		{"release without allowlist denies", gin.ReleaseMode, &config.CORSConfig{}, []string{}, false, 24 * time.Hour},
		{"nil config", gin.ReleaseMode, nil, []string{}, false, 24 * time.Hour},
		{
			"explicit allowlist with credentials and max age",
			gin.ReleaseMode,
			&config.CORSConfig{AllowOrigins: []string{"https://admin.example.com"}, AllowCredentials: true, MaxAge: "12h"},
			[]string{"https://admin.example.com"}, true, 12 * time.Hour,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCORSConfig(tt.mode, tt.cors)
			if strings.Join(got.AllowOrigins, ",") != strings.Join(tt.wantOrigins, ",") {
				t.Errorf("AllowOrigins = %v, want %v", got.AllowOrigins, tt.wantOrigins)
			}
			if got.AllowCredentials != tt.wantCredentials {
				t.Errorf("AllowCredentials = %v", got.AllowCredentials)
			}
			if got.MaxAge != tt.wantMaxAge {
				t.Errorf("MaxAge = %v, want %v", got.MaxAge, tt.wantMaxAge)
			}
			if len(got.ExposeHeaders) == 0 {
				t.Error("ExposeHeaders lost")
			}
		})
	}
}

func TestValidateGinMode(t *testing.T) {
	for _, mode := range []string{gin.DebugMode, gin.ReleaseMode, gin.TestMode} {
		if err := validateGinMode(mode); err != nil {
			t.Errorf("validateGinMode(%q) = %v", mode, err)
		}
	}
	if err := validateGinMode("staging"); err == nil {
		t.Error("validateGinMode(staging) = nil, want error")
	}
}

func TestEffectiveServerTimeout(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"   ", 0, false},
		{"30s", 30 * time.Second, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := effectiveServerTimeout(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("effectiveServerTimeout(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestIsPlaceholderCSRFSecret(t *testing.T) {
	for secret, want := range map[string]bool{
		"":                        true,
		"  ":                      true,
		"change-me-in-production": true,
		"CHANGE-ME-IN-ENV":        true,
		testSecret:                false,
	} {
		if got := isPlaceholderCSRFSecret(secret); got != want {
			t.Errorf("isPlaceholderCSRFSecret(%q) = %v", secret, got)
		}
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) error = nil")
	}
}

func TestNew_CSRFSecretValidation(t *testing.T) {
	srv := newBackendServer(t)

	tests := []struct {
		name    string
		mode    string
		secret  string
		wantErr bool
	}{
		{"release rejects placeholder", gin.ReleaseMode, "change-me-in-production", true},
		{"test mode generates a secret", gin.TestMode, "", false},
		{"release accepts strong secret", gin.ReleaseMode, testSecret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(srv.URL + "/api")
			cfg.Server.Mode = tt.mode
			cfg.Server.CSRFSecret = tt.secret

			a, err := New(cfg)
			defer cleanupTestApp(t, a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_InvalidBackend(t *testing.T) {
	cfg := testConfig("not-a-url")
	if _, err := New(cfg); err == nil || !strings.Contains(err.Error(), "setup backend") {
		t.Fatalf("New() error = %v, want setup backend error", err)
	}
}

func TestNew_ServesCollections(t *testing.T) {
	srv := newBackendServer(t)
	a, err := New(testConfig(srv.URL + "/api"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cleanupTestApp(t, a)

	get := func(path string) (int, workspace.State) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Session-ID", "7f6d1c2e-3b4a-4c5d-8e9f-0a1b2c3d4e5f")
		w := httptest.NewRecorder()
		a.engine.ServeHTTP(w, req)

		var resp struct {
			Data workspace.State `json:"data"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		return w.Code, resp.Data
	}

	code, st := get("/api/v1/users?sort=last_name:desc")
	if code != http.StatusOK {
		t.Fatalf("GET users = %d", code)
	}
	if st.Total != 2 || st.IsDemo() || len(st.Items) != 2 || st.Items[0].ID() != "u2" {
		t.Errorf("users state = %+v", st.View)
	}

	// The backend fails for exchanges, so demo rows are served.
	code, st = get("/api/v1/exchanges")
	if code != http.StatusOK {
		t.Fatalf("GET exchanges = %d", code)
	}
	if !st.IsDemo() || st.RawCount != 6 || st.Notice == nil {
		t.Errorf("exchanges state: demo=%v raw=%d notice=%v", st.IsDemo(), st.RawCount, st.Notice)
	}

	// Page size is capped by listing.max_page_size.
	_, st = get("/api/v1/users?page_size=500")
	if st.PageSize != 50 {
		t.Errorf("page_size = %d, want 50", st.PageSize)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	a.engine.ServeHTTP(w, req)
	var resp pkg.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || w.Code != http.StatusNotFound {
		t.Errorf("unknown API route = %d %q", w.Code, w.Body.String())
	}
}

func TestRun_ReturnsError_WhenListenFails(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	listenErr := errors.New("listen failed")
	newHTTPServer = func(string, http.Handler) httpServer {
		return &fakeHTTPServer{listenErr: listenErr}
	}
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}

	a := &App{
		engine: gin.New(),
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}

	err := a.Run()
	if err == nil || !strings.Contains(err.Error(), "server error") || !errors.Is(err, listenErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, listenErr)
	}
}

func TestRun_ShutdownSignal_ReleasesSessions(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	server := &fakeHTTPServer{listenStarted: make(chan struct{}), stopCh: make(chan struct{})}
	newHTTPServer = func(string, http.Handler) httpServer {
		return server
	}
	ctx, cancel := context.WithCancel(context.Background())
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return ctx, cancel
	}

	store := workspace.NewStore(8, time.Minute, collection.NewFactory(10, listing.DefaultLocale))
	store.Get("s1", "users")

	a := &App{
		engine: gin.New(),
		store:  store,
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	select {
	case <-server.listenStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start listening in time")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return in time after shutdown signal")
	}

	if !server.wasShutdownCalled() {
		t.Fatal("expected server Shutdown() to be called")
	}
	if store.Len() != 0 {
		t.Errorf("store still holds %d entries", store.Len())
	}
}
