package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/simp-lee/marketdesk/internal/backend"
)

// SetupBackend creates the marketplace backend client from cfg. Zero or
// empty values are replaced with defaults.
func SetupBackend(cfg *BackendConfig, logger *slog.Logger) (*backend.Client, error) {
	if cfg == nil {
		return nil, errors.New("backend config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	timeout, err := time.ParseDuration(effectiveBackendTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("invalid backend.timeout %q: %w", cfg.Timeout, err)
	}
	wait, err := time.ParseDuration(effectiveRetryWait(cfg.RetryWait))
	if err != nil {
		return nil, fmt.Errorf("invalid backend.retry_wait %q: %w", cfg.RetryWait, err)
	}

	client, err := backend.New(backend.Config{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		Timeout:    timeout,
		RetryCount: cfg.RetryCount,
		RetryWait:  wait,
		HealthPath: cfg.HealthPath,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("backend configured",
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("token", cfg.Token != ""),
		slog.Duration("timeout", timeout),
		slog.Int("retry_count", cfg.RetryCount),
	)
	return client, nil
}

func effectiveBackendTimeout(v string) string {
	if v == "" {
		return "10s"
	}
	return v
}

func effectiveRetryWait(v string) string {
	if v == "" {
		return "200ms"
	}
	return v
}

// PageSizes returns the default and maximum page size, with defaults for
// unset values.
func (l ListingConfig) PageSizes() (def, maxSize int) {
	def, maxSize = l.DefaultPageSize, l.MaxPageSize
	if def <= 0 {
		def = 10
	}
	if maxSize <= 0 {
		maxSize = 100
	}
	return min(def, maxSize), maxSize
}

// Tag returns the collation locale; French when unset or invalid.
func (l ListingConfig) Tag() language.Tag {
	if l.Locale == "" {
		return language.French
	}
	tag, err := language.Parse(l.Locale)
	if err != nil {
		return language.French
	}
	return tag
}

// TTL returns the idle lifetime of a dashboard session; 30 minutes when unset.
func (l ListingConfig) TTL() time.Duration {
	d, err := time.ParseDuration(l.SessionTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// Sessions returns the session store capacity; 1024 when unset.
func (l ListingConfig) Sessions() int {
	if l.MaxSessions <= 0 {
		return 1024
	}
	return l.MaxSessions
}

// DemoRows returns the size of fallback datasets; 24 when unset.
func (l ListingConfig) DemoRows() int {
	if l.DemoSize <= 0 {
		return 24
	}
	return l.DemoSize
}
