package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Backend BackendConfig `koanf:"backend"`
	Listing ListingConfig `koanf:"listing"`
	Log     LogConfig     `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	CSRFSecret string `koanf:"csrf_secret"`
	// TrustRequestID reuses an incoming X-Request-ID, for deployments
	// behind a proxy that assigns one.
	TrustRequestID bool       `koanf:"trust_request_id"`
	Timeout        string     `koanf:"timeout"`
	CORS           CORSConfig `koanf:"cors"`
}

// CORSConfig holds CORS settings for the JSON API.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// BackendConfig holds the marketplace REST backend connection settings.
type BackendConfig struct {
	BaseURL    string `koanf:"base_url"`
	Token      string `koanf:"token"`
	Timeout    string `koanf:"timeout"`
	RetryCount int    `koanf:"retry_count"`
	RetryWait  string `koanf:"retry_wait"`
	HealthPath string `koanf:"health_path"`
}

// ListingConfig holds the list pipeline and session store settings.
type ListingConfig struct {
	DefaultPageSize int    `koanf:"default_page_size"`
	MaxPageSize     int    `koanf:"max_page_size"`
	Locale          string `koanf:"locale"`
	SessionTTL      string `koanf:"session_ttl"`
	MaxSessions     int    `koanf:"max_sessions"`
	DemoFallback    bool   `koanf:"demo_fallback"`
	DemoSize        int    `koanf:"demo_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__BACKEND__BASE_URL=https://api.example.com overrides backend.base_url.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// APP__LISTING__DEFAULT_PAGE_SIZE -> listing.default_page_size
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateListing(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	secret := strings.TrimSpace(c.Server.CSRFSecret)
	if secret == "" {
		return fmt.Errorf("server.csrf_secret is required")
	}
	if c.Server.Mode == gin.ReleaseMode {
		if len(secret) < 32 {
			return fmt.Errorf("invalid server.csrf_secret: must be at least 32 characters in release mode")
		}
		if CountSecretClasses(secret) < 3 {
			return fmt.Errorf("server.csrf_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
		}
	}
	c.Server.CSRFSecret = secret

	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	if err := checkDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)
	if err := checkDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}

	origins := make([]string, 0, len(c.Server.CORS.AllowOrigins))
	for idx, o := range c.Server.CORS.AllowOrigins {
		o = strings.TrimSpace(o)
		if o == "" {
			return fmt.Errorf("server.cors.allow_origins[%d] cannot be empty", idx)
		}
		if o == "*" && c.Server.CORS.AllowCredentials && c.Server.Mode == gin.ReleaseMode {
			return fmt.Errorf("server.cors.allow_origins cannot be \"*\" with allow_credentials in release mode")
		}
		origins = append(origins, o)
	}
	c.Server.CORS.AllowOrigins = origins

	return nil
}

func (c *Config) validateBackend() error {
	raw := strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if raw == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend.base_url %q: %w", c.Backend.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend.base_url %q: scheme must be http or https", c.Backend.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend.base_url %q: host is required", c.Backend.BaseURL)
	}
	c.Backend.BaseURL = raw
	c.Backend.Token = strings.TrimSpace(c.Backend.Token)

	c.Backend.Timeout = strings.TrimSpace(c.Backend.Timeout)
	if err := checkDuration("backend.timeout", c.Backend.Timeout); err != nil {
		return err
	}
	c.Backend.RetryWait = strings.TrimSpace(c.Backend.RetryWait)
	if err := checkDuration("backend.retry_wait", c.Backend.RetryWait); err != nil {
		return err
	}
	if c.Backend.RetryCount < 0 || c.Backend.RetryCount > 10 {
		return fmt.Errorf("invalid backend.retry_count %d: must be between 0 and 10", c.Backend.RetryCount)
	}

	hp := strings.TrimSpace(c.Backend.HealthPath)
	if hp != "" && !strings.HasPrefix(hp, "/") {
		return fmt.Errorf("invalid backend.health_path %q: must start with '/'", c.Backend.HealthPath)
	}
	c.Backend.HealthPath = hp

	return nil
}

func (c *Config) validateListing() error {
	l := &c.Listing
	if l.DefaultPageSize < 0 || l.MaxPageSize < 0 {
		return fmt.Errorf("invalid listing page sizes %d/%d: must not be negative", l.DefaultPageSize, l.MaxPageSize)
	}
	if l.MaxPageSize > 0 && l.DefaultPageSize > l.MaxPageSize {
		return fmt.Errorf("invalid listing.default_page_size %d: exceeds listing.max_page_size %d", l.DefaultPageSize, l.MaxPageSize)
	}
	if l.MaxSessions < 0 {
		return fmt.Errorf("invalid listing.max_sessions %d: must not be negative", l.MaxSessions)
	}
	if l.DemoSize < 0 {
		return fmt.Errorf("invalid listing.demo_size %d: must not be negative", l.DemoSize)
	}

	l.Locale = strings.TrimSpace(l.Locale)
	if l.Locale != "" {
		if _, err := language.Parse(l.Locale); err != nil {
			return fmt.Errorf("invalid listing.locale %q: %w", l.Locale, err)
		}
	}

	l.SessionTTL = strings.TrimSpace(l.SessionTTL)
	return checkDuration("listing.session_ttl", l.SessionTTL)
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return nil
}

// checkDuration validates an optional duration field: empty means unset,
// anything else must parse and be positive.
func checkDuration(name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, v)
	}
	return nil
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	hasLower := false
	hasUpper := false
	hasDigit := false
	hasSymbol := false

	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := 0
	for _, has := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if has {
			classes++
		}
	}
	return classes
}
