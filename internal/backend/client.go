// Package backend is the HTTP client for the marketplace REST backend.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/envelope"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	// HealthPath is requested by Ping. Defaults to "/health".
	HealthPath string
}

// Client talks to the backend collections. It is safe for concurrent use.
type Client struct {
	http       *resty.Client
	healthPath string
}

// New creates a Client. BaseURL must be an absolute http or https URL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: invalid base URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("backend: base URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(max(cfg.RetryCount, 0)).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(max(cfg.RetryWait*8, time.Second))
	if cfg.Token != "" {
		c.SetHeader("Authorization", "Bearer "+cfg.Token)
	}
	c.AddRetryCondition(retryCondition)
	c.OnBeforeRequest(forwardRequestID)

	health := cfg.HealthPath
	if health == "" {
		health = "/health"
	}
	return &Client{http: c, healthPath: health}, nil
}

// retryMethods are the methods safe to send twice. A POST that reached the
// backend may already have created its entity, so it is never retried.
var retryMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || !retryMethods[r.Request.Method] {
		return false
	}
	if err != nil {
		// The caller went away; retrying cannot help.
		return !errors.Is(err, context.Canceled)
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// RequestIDHeader carries the dashboard request id on outbound calls so a
// failure can be traced on both sides.
const RequestIDHeader = "X-Request-ID"

func forwardRequestID(_ *resty.Client, r *resty.Request) error {
	if id := domain.RequestIDFrom(r.Context()); id != "" {
		r.SetHeader(RequestIDHeader, id)
	}
	return nil
}

// List fetches a collection and normalises its envelope.
func (c *Client) List(ctx context.Context, path string) (envelope.Envelope, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return envelope.Envelope{}, unreachable("list "+path, err)
	}
	if resp.IsError() {
		return envelope.Envelope{}, statusError(resp, "list "+path)
	}
	env, err := envelope.Decode(resp.Body())
	if err != nil {
		return envelope.Envelope{}, domain.NewAppError(domain.CodeBadGateway, "réponse inattendue du serveur", err)
	}
	return env, nil
}

// ListView fetches a pre-filtered sibling view such as "blocked" or "deleted".
func (c *Client) ListView(ctx context.Context, path, view string) (envelope.Envelope, error) {
	if view == "" {
		return c.List(ctx, path)
	}
	return c.List(ctx, join(path, url.PathEscape(view)))
}

// Act applies a state-changing verb to one entity.
func (c *Client) Act(ctx context.Context, path, id, verb string) error {
	if id == "" || verb == "" {
		return domain.NewAppError(domain.CodeValidation, "identifiant et action requis", nil)
	}
	endpoint := join(path, url.PathEscape(id), url.PathEscape(verb))
	req := c.http.R().SetContext(ctx)

	var (
		resp *resty.Response
		err  error
	)
	if MethodFor(verb) == http.MethodPost {
		resp, err = req.Post(endpoint)
	} else {
		resp, err = req.Put(endpoint)
	}
	if err != nil {
		return unreachable(verb+" "+id, err)
	}
	if resp.IsError() {
		return statusError(resp, verb+" "+id)
	}
	return nil
}

// Delete removes one entity.
func (c *Client) Delete(ctx context.Context, path, id string) error {
	if id == "" {
		return domain.NewAppError(domain.CodeValidation, "identifiant requis", nil)
	}
	resp, err := c.http.R().SetContext(ctx).Delete(join(path, url.PathEscape(id)))
	if err != nil {
		return unreachable("delete "+id, err)
	}
	if resp.IsError() {
		return statusError(resp, "delete "+id)
	}
	return nil
}

// Create posts a new entity to the collection.
func (c *Client) Create(ctx context.Context, path string, payload map[string]any) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(payload).Post(path)
	if err != nil {
		return unreachable("create "+path, err)
	}
	if resp.IsError() {
		return statusError(resp, "create "+path)
	}
	return nil
}

// Ping reports whether the backend answers. Any status below 500 counts as up.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.healthPath)
	if err != nil {
		return unreachable("ping", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return statusError(resp, "ping")
	}
	return nil
}

// postVerbs lists the verbs the backend exposes as POST; every other verb is a PUT.
var postVerbs = map[string]bool{
	"accept": true,
	"refuse": true,
}

// MethodFor returns the HTTP method used for verb.
func MethodFor(verb string) string {
	if postVerbs[verb] {
		return http.MethodPost
	}
	return http.MethodPut
}

func join(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.Trim(p, "/")
	}
	return "/" + strings.Join(parts, "/")
}

func unreachable(op string, err error) error {
	return domain.NewAppError(domain.CodeUnavailable, "serveur injoignable", fmt.Errorf("%s: %w", op, err))
}

// statusError maps a backend error response onto an AppError, keeping the
// backend message when it sends one.
func statusError(resp *resty.Response, op string) error {
	code := resp.StatusCode()
	msg := parseAPIError(resp)
	cause := fmt.Errorf("%s: status %d", op, code)

	switch {
	case code == http.StatusNotFound:
		return domain.NewAppError(domain.CodeNotFound, orDefault(msg, "élément introuvable"), cause)
	case code == http.StatusConflict:
		return domain.NewAppError(domain.CodeAlreadyExists, orDefault(msg, "élément déjà existant"), cause)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return domain.NewAppError(domain.CodeValidation, orDefault(msg, "requête invalide"), cause)
	case code >= http.StatusInternalServerError || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return domain.NewAppError(domain.CodeUnavailable, orDefault(msg, "serveur indisponible"), cause)
	default:
		return domain.NewAppError(domain.CodeInternal, orDefault(msg, "erreur du serveur"), cause)
	}
}

func parseAPIError(resp *resty.Response) string {
	if resp == nil {
		return ""
	}
	body := resp.Body()
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	return strings.TrimSpace(payload.Error)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
