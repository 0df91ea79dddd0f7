// Package api is the single HTTP gateway to the expense tracker backend.
// Every request goes through one Client, which attaches the bearer token to
// protected calls and reacts to 401 responses by purging the token and
// raising an unauthorized event.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"exptrack/internal/cache"
	"exptrack/internal/core"
	"exptrack/internal/log"
	"exptrack/internal/trace"
)

const (
	DefaultTimeout  = 30 * time.Second
	HeaderRequestID = trace.Header

	maxBodyBytes = 8 << 20
)

// Paths that never carry the bearer token.
var publicPaths = map[string]struct{}{
	"/auth/login":    {},
	"/auth/register": {},
	"/auth/google":   {},
}

// TokenStore is the persisted bearer token as seen by the client.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) (bool, error)
}

// UnauthorizedEvent is raised once per purged token when the backend
// answers 401.
type UnauthorizedEvent struct {
	Method    string
	Path      string
	RequestID string
	At        time.Time
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenStore
	// OnUnauthorized is invoked synchronously from the goroutine that
	// received the 401. It must not block.
	OnUnauthorized func(UnauthorizedEvent)
	Logger         *log.Logger
	HTTPClient     *http.Client
	UserAgent      string
	// CacheTTL bounds how long category and account lists are reused.
	// Zero disables caching.
	CacheTTL time.Duration
}

type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	onUnauthorized func(UnauthorizedEvent)
	logger         *log.Logger
	userAgent      string

	categories *cache.Lists[core.Category]
	accounts   *cache.Lists[core.Account]
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", opts.BaseURL)
	}
	if opts.Tokens == nil {
		return nil, errors.New("api: token store is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAPI)
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling(timeout, logger)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "exptrack"
	}

	return &Client{
		baseURL:        base,
		http:           httpClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger,
		userAgent:      ua,
		categories:     cache.NewLists[core.Category](4, opts.CacheTTL),
		accounts:       cache.NewLists[core.Account](4, opts.CacheTTL),
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Caches exposes the client's caches for periodic sweeping.
func (c *Client) Caches() []cache.Cleaner {
	return []cache.Cleaner{c.categories, c.accounts}
}

// ResetCache drops cached reference data. Called whenever the identity
// behind the token changes.
func (c *Client) ResetCache() {
	c.categories.Invalidate()
	c.accounts.Invalidate()
}

// newHTTPClientWithPooling builds the default client: a pooled transport
// wrapped in request tracing.
func newHTTPClientWithPooling(timeout time.Duration, logger *log.Logger) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: trace.NewTransport(transport, logger),
		Timeout:   timeout,
	}
}

func isPublic(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// do sends one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	ctx, requestID := trace.Ensure(ctx)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)

	if !isPublic(path) {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrNetwork, method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, method, path, requestID)
	}
	if resp.StatusCode >= 400 {
		return &Error{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(data),
			Body:    data,
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// handleUnauthorized purges the token unconditionally and raises the event
// only for the caller that actually removed it, so concurrent 401s produce
// a single redirect.
func (c *Client) handleUnauthorized(ctx context.Context, method, path, requestID string) {
	c.ResetCache()
	removed, err := c.tokens.ClearToken(context.WithoutCancel(ctx))
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to purge token after 401", log.FieldError, err)
		return
	}
	if !removed {
		return
	}
	c.logger.InfoContext(ctx, "Session rejected by server",
		log.FieldMethod, method, log.FieldPath, path, log.FieldRequestID, requestID)
	if c.onUnauthorized != nil {
		c.onUnauthorized(UnauthorizedEvent{
			Method:    method,
			Path:      path,
			RequestID: requestID,
			At:        time.Now(),
		})
	}
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, method, path, nil, body, &out)
	return out, err
}

func idPath(format string, ids ...core.ID) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id.String())
	}
	return fmt.Sprintf(format, args...)
}
