// Package docfinity implements the indexer Backend over the DocFinity REST API.
package docfinity

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/indexer"
	"github.com/Aman-CERP/edmindex/pkg/model"
	"github.com/Aman-CERP/edmindex/pkg/version"
)

// Request headers.
const (
	headerAuthorization = "Authorization"
	headerXSRFToken     = "X-XSRF-TOKEN"
	headerCookie        = "Cookie"
	headerAuditUser     = "X-AUDITUSER"
	headerRequestID     = "X-Request-ID"

	xsrfTokenValue  = "edm-token"
	xsrfCookieValue = "XSRF-TOKEN=edm-token"

	contentTypeJSON = "application/json; charset=utf-8"
)

// Defaults applied by New.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultCacheSize     = 128
	DefaultCacheTTL      = 10 * time.Minute
	maxErrorBodyLogBytes = 512
)

// Config configures a Client.
type Config struct {
	// BaseURL is the DocFinity server root, e.g. https://edm.example.edu/docfinity.
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// AuditUser is sent as X-AUDITUSER when set.
	AuditUser string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxRetries applies to idempotent reads only.
	MaxRetries int

	// RetryDelay is the initial backoff between read retries.
	RetryDelay time.Duration

	// CacheSize and CacheTTL size the document type cache.
	CacheSize int
	CacheTTL  time.Duration

	// Trace logs request and response bodies at debug level.
	Trace bool
}

// Client talks to a DocFinity server. It is safe for concurrent use.
type Client struct {
	cfg    Config
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
	newID  func() string

	types *expirable.LRU[string, model.DocumentType]
	group singleflight.Group
}

// Verify interface implementation at compile time
var _ indexer.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDs overrides the X-Request-ID generator.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, edmerrors.ConfigError("document server URL is required", nil).
			WithSuggestion("Set --url, EDMINDEX_URL or server.url in the config file")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, edmerrors.ConfigError("invalid document server URL: "+cfg.BaseURL, err)
	}
	if cfg.APIKey == "" {
		return nil, edmerrors.ConfigError("API key is required", nil).
			WithSuggestion("Set --key, EDMINDEX_API_KEY or server.api_key in the config file")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	// Per-request timeouts come from the context, not http.Client.Timeout.
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,
	}

	c := &Client{
		cfg:    cfg,
		base:   base,
		http:   &http.Client{Transport: transport},
		logger: slog.Default(),
		newID:  uuid.NewString,
		types:  expirable.NewLRU[string, model.DocumentType](cfg.CacheSize, nil, cfg.CacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one HTTP call. body is kept as bytes so a read can be
// replayed on retry.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	bodyReader  io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return request{}, edmerrors.InternalError("failed to encode request", err)
		}
		req.body = data
		req.contentType = contentTypeJSON
	}
	return req, nil
}

// read performs an idempotent call, retrying retryable failures.
func (c *Client) read(ctx context.Context, req request, out any) error {
	cfg := edmerrors.DefaultRetryConfig()
	cfg.MaxRetries = c.cfg.MaxRetries
	cfg.InitialDelay = c.cfg.RetryDelay
	cfg.Jitter = true

	body, err := edmerrors.RetryWithResult(ctx, cfg, func() ([]byte, error) {
		return c.send(ctx, req)
	})
	if err != nil {
		return err
	}
	return decode(req, body, out)
}

// write performs a non-idempotent call exactly once.
func (c *Client) write(ctx context.Context, req request, out any) error {
	body, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return decode(req, body, out)
}

func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := c.base.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader = req.bodyReader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, edmerrors.InternalError("failed to create request", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	requestID := c.applyHeaders(httpReq)

	c.traceRequest(httpReq, req, requestID)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, edmerrors.NetworkError(fmt.Sprintf("%s %s failed", req.method, req.path), err).
			WithDetail("request_id", requestID).
			WithSuggestion("Check that the document server is reachable")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, edmerrors.NetworkError("failed to read response body", err).
			WithDetail("request_id", requestID)
	}
	c.traceResponse(resp, data, requestID, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(req, resp.StatusCode, data, requestID)
	}
	return data, nil
}

func (c *Client) applyHeaders(r *http.Request) string {
	requestID := c.newID()
	r.Header.Set(headerAuthorization, "Bearer "+c.cfg.APIKey)
	r.Header.Set(headerXSRFToken, xsrfTokenValue)
	r.Header.Set(headerCookie, xsrfCookieValue)
	r.Header.Set(headerRequestID, requestID)
	if c.cfg.AuditUser != "" {
		r.Header.Set(headerAuditUser, c.cfg.AuditUser)
	}
	r.Header.Set("Accept", "application/json")
	r.Header.Set("User-Agent", version.UserAgent())
	return requestID
}

func statusError(req request, status int, body []byte, requestID string) error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrorBodyLogBytes {
		snippet = snippet[:maxErrorBodyLogBytes]
	}
	err := edmerrors.New(edmerrors.ErrCodeBackendStatus,
		fmt.Sprintf("%s %s returned status %d", req.method, req.path, status), nil).
		WithDetail("status", fmt.Sprint(status)).
		WithDetail("request_id", requestID)
	if snippet != "" {
		err = err.WithDetail("body", snippet)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err = err.WithSuggestion("Check the API key and audit user")
	case status >= 500:
		err = err.WithRetryable(true)
	}
	return err
}

func decode(req request, body []byte, out any) error {
	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = strings.TrimSpace(string(body))
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return edmerrors.New(edmerrors.ErrCodeBackendResponse,
			fmt.Sprintf("unexpected response from %s", req.path), err)
	}
	return nil
}

func (c *Client) traceRequest(r *http.Request, req request, requestID string) {
	if !c.cfg.Trace {
		return
	}
	body := "[No Request Body]"
	if req.body != nil && req.contentType == contentTypeJSON {
		body = string(req.body)
	}
	c.logger.Debug("request",
		slog.String("method", r.Method),
		slog.String("url", r.URL.String()),
		slog.String("request_id", requestID),
		slog.String("body", body))
}

func (c *Client) traceResponse(resp *http.Response, body []byte, requestID string, elapsed time.Duration) {
	if !c.cfg.Trace {
		return
	}
	text := string(body)
	if text == "" {
		text = "[No Response Body]"
	}
	c.logger.Debug("response",
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", elapsed),
		slog.String("body", text))
}
