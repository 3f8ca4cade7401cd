package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tablecraft/tablecraft/internal"
	"github.com/tablecraft/tablecraft/internal/query"
	"github.com/tablecraft/tablecraft/internal/session"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRetryCount = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second

	refreshPath      = "/auth/refresh"
	maxResponseBytes = 32 << 20
)

// RequestOptions tweak a single request.
type RequestOptions struct {
	// Params are encoded into the query string with BuildURL
	Params map[string]any
	// Headers are added to the request
	Headers map[string]string
	// SkipAuth doesn't send the bearer token
	SkipAuth bool
	// SkipRefresh disables the refresh on 401
	SkipRefresh bool
	// NoRetry disables retries on 5xx and network failures
	NoRetry bool
	// Timeout overrides the per attempt timeout
	Timeout time.Duration
}

// Client is the single point for outbound calls to the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	store      session.Store
	logger     logger.Logger
	retryCount int
	retryDelay time.Duration
	timeout    time.Duration
	userAgent  string
	deviceID   string
	refresh    singleflight.Group
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger logger.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStore sets where tokens are kept.
func WithStore(store session.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithRetry sets the number of retries and the base delay for the exponential backoff.
func WithRetry(count int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryCount = count
		c.retryDelay = delay
	}
}

// WithTimeout sets the per attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithDeviceID sets the X-Device-Id header sent on every request.
func WithDeviceID(id string) Option {
	return func(c *Client) {
		c.deviceID = id
	}
}

// New creates a new client for the api at baseURL (e.g. https://example.com/api/v1).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, errors.Newf("invalid base url: %s", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{},
		retryCount: DefaultRetryCount,
		retryDelay: DefaultRetryDelay,
		timeout:    DefaultTimeout,
		userAgent:  "tablecraft",
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retryCount < 0 {
		return nil, errors.Newf("invalid retry count: %d", c.retryCount)
	}
	if c.store == nil {
		c.store = session.NewMemoryStore()
	}
	if c.logger == nil {
		c.logger = logger.NewConsoleLogger(logger.LevelInfo)
	}
	c.logger = c.logger.WithPrefix("[apiclient]")
	return c, nil
}

// BaseURL returns the api base url.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the session store used by the client.
func (c *Client) Store() session.Store {
	return c.store
}

// BuildURL appends the encoded params to path.
func BuildURL(path string, params map[string]any) string {
	qs := query.Encode(params)
	if qs == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + qs
	}
	return path + "?" + qs
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff returns the delay before retry number attempt (zero based).
func (c *Client) backoff(attempt int) time.Duration {
	return c.retryDelay * time.Duration(1<<uint(attempt))
}

func retriable(err error) bool {
	switch KindOf(err) {
	case KindServer, KindNetwork:
		return true
	}
	return false
}

// Request sends a request and decodes the JSON response into out (which may be nil).
func (c *Client) Request(ctx context.Context, method string, path string, body any, opts *RequestOptions, out any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}
	var payload []byte
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "error encoding request body")
		}
		payload = buf
	}
	token := ""
	if !opts.SkipAuth {
		token = c.store.Token()
	}
	err := c.doWithRetry(ctx, method, path, payload, opts, token, out)
	if KindOf(err) != KindAuthentication || token == "" {
		return err
	}
	if opts.SkipRefresh || path == refreshPath || c.store.RefreshToken() == "" {
		c.logger.Debug("%s %s was unauthorized and no refresh is possible", method, path)
		c.clearSession()
		return err
	}
	newToken, rerr := c.refreshToken(ctx, token)
	if rerr != nil {
		c.logger.Warn("token refresh failed: %s", rerr)
		return &AuthenticationError{APIError{Status: http.StatusUnauthorized, Message: "session expired"}}
	}
	err = c.doWithRetry(ctx, method, path, payload, opts, newToken, out)
	if KindOf(err) == KindAuthentication {
		c.clearSession()
	}
	return err
}

func (c *Client) clearSession() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("error clearing session: %s", err)
	}
}

func (c *Client) doWithRetry(ctx context.Context, method string, path string, payload []byte, opts *RequestOptions, token string, out any) error {
	for attempt := 0; ; attempt++ {
		err := c.do(ctx, method, path, payload, opts, token, out)
		if err == nil {
			return nil
		}
		if opts.NoRetry || attempt >= c.retryCount || !retriable(err) {
			return err
		}
		if ctx.Err() != nil {
			return &NetworkError{Err: ctx.Err()}
		}
		delay := c.backoff(attempt)
		c.logger.Debug("request failed (%s %s): %s, retrying in %v (attempt %d of %d)", method, path, err, delay, attempt+1, c.retryCount)
		internal.TotalRetries.Inc()
		if serr := c.sleep(ctx, delay); serr != nil {
			return &NetworkError{Err: serr}
		}
	}
}

func statusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return string(rune('0'+status/100)) + "xx"
}

// do is a single attempt.
func (c *Client) do(ctx context.Context, method string, path string, payload []byte, opts *RequestOptions, token string, out any) error {
	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rbody io.Reader
	if payload != nil {
		rbody = bytes.NewReader(payload)
	}
	u := c.baseURL + BuildURL(path, opts.Params)
	req, err := http.NewRequestWithContext(actx, method, u, rbody)
	if err != nil {
		return errors.Wrap(err, "error creating request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	internal.RequestDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		internal.TotalRequests.WithLabelValues(method, statusClass(0)).Inc()
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded)
		return &NetworkError{Err: err, Timeout: timedOut}
	}
	defer resp.Body.Close()
	internal.TotalRequests.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()
	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Err: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
	}
	c.logger.Trace("%s %s returned %d in %v", method, path, resp.StatusCode, time.Since(started))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, buf)
	}
	if out == nil || len(bytes.TrimSpace(buf)) == 0 {
		return nil
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	return nil
}

// Get sends a GET.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions, out any) error {
	return c.Request(ctx, http.MethodGet, path, nil, opts, out)
}

// Post sends a POST.
func (c *Client) Post(ctx context.Context, path string, body any, opts *RequestOptions, out any) error {
	return c.Request(ctx, http.MethodPost, path, body, opts, out)
}

// Put sends a PUT.
func (c *Client) Put(ctx context.Context, path string, body any, opts *RequestOptions, out any) error {
	return c.Request(ctx, http.MethodPut, path, body, opts, out)
}

// Patch sends a PATCH.
func (c *Client) Patch(ctx context.Context, path string, body any, opts *RequestOptions, out any) error {
	return c.Request(ctx, http.MethodPatch, path, body, opts, out)
}

// Delete sends a DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions, out any) error {
	return c.Request(ctx, http.MethodDelete, path, nil, opts, out)
}
