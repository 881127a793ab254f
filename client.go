package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	HeaderRequestID = "X-Request-ID"
	refreshFlight   = "refresh"
)

// Request describes a call against the storefront API. A Request that has
// been through one refresh cycle is marked retried and will not trigger
// another one, even if the caller sends it again.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	retried bool
}

// Retried reports whether the request already used its refresh attempt
func (r *Request) Retried() bool {
	return r.retried
}

// Response is a buffered API response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into out
func (r *Response) Decode(out any) error {
	if r == nil || len(r.Body) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode API response").
			WithMetadata(map[string]any{"status": r.Status})
	}
	return nil
}

// Client issues requests against the storefront API with the current
// access token and recovers from one expired token per request.
type Client struct {
	baseURL     string
	refreshPath string
	http        *http.Client
	tokens      *TokenStore
	logger      Logger
	sink        ActivitySink
	anonymous   bool
	coalesce    bool
	group       *singleflight.Group
	now         func() time.Time
}

// ClientOption customizes Client construction
type ClientOption func(*Client)

// WithHTTPClient sets the transport. The client's Jar carries the refresh
// cookie, so a client without a jar gets one.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRefreshPath overrides the refresh endpoint
func WithRefreshPath(path string) ClientOption {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithRefreshCoalescing shares one refresh call between concurrent 401s.
// Enabled by default.
func WithRefreshCoalescing(enabled bool) ClientOption {
	return func(c *Client) {
		c.coalesce = enabled
	}
}

// WithClientLogger sets the logger
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientActivitySink records token refresh outcomes
func WithClientActivitySink(sink ActivitySink) ClientOption {
	return func(c *Client) {
		c.sink = normalizeActivitySink(sink)
	}
}

// WithClientClock injects a clock for activity timestamps
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient returns a Client rooted at baseURL using tokens for bearer
// credentials
func NewClient(baseURL string, tokens *TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: PathRefreshToken,
		tokens:      tokens,
		logger:      defLogger{},
		sink:        noopActivitySink{},
		coalesce:    true,
		group:       &singleflight.Group{},
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}

	if c.http.Jar == nil {
		if jar, err := cookiejar.New(nil); err == nil {
			c.http.Jar = jar
		}
	}

	if c.tokens == nil {
		c.tokens = NewTokenStore(nil, nil)
	}

	return c
}

// NewClientFromConfig builds a Client from cfg
func NewClientFromConfig(cfg Config, tokens *TokenStore, opts ...ClientOption) *Client {
	base := []ClientOption{WithRefreshPath(cfg.GetRefreshPath())}
	return NewClient(cfg.GetAPIBaseURL(), tokens, append(base, opts...)...)
}

// Public returns a sibling client that sends no bearer token and never
// refreshes. It shares the transport and cookie jar.
func (c *Client) Public() *Client {
	cp := *c
	cp.anonymous = true
	return &cp
}

// Tokens exposes the token store the client reads from
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Do sends req. A 401 on a request that was not retried yet triggers one
// refresh and one resend with the new token. If the refresh fails the
// token store is cleared and the original 401 is returned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, goerrors.New("nil request", goerrors.CategoryBadInput)
	}

	token := ""
	if !c.anonymous {
		var err error
		if token, err = c.tokens.Get(ctx); err != nil {
			c.logger.Error("failed to read access token: %s", err)
			token = ""
		}
	}

	res, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}

	if res.Status != http.StatusUnauthorized || c.anonymous || req.retried {
		return res, c.checkStatus(req, res)
	}

	req.retried = true
	originalErr := c.checkStatus(req, res)

	newToken, rerr := c.Refresh(ctx)
	if rerr != nil && ctx.Err() != nil {
		// canceled by the caller, the token is left to the shared refresh
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "request canceled during token refresh").
			WithTextCode(TextCodeTransport).
			WithMetadata(map[string]any{"status": 0, "method": req.Method, "path": req.Path})
	}
	if rerr != nil {
		c.logger.Info("refresh after 401 failed, clearing token: %s %s", req.Method, req.Path)
		if cerr := c.tokens.Clear(ctx); cerr != nil {
			c.logger.Error("failed to clear token after refresh failure: %s", cerr)
		}
		return res, originalErr
	}

	res, err = c.send(ctx, req, newToken)
	if err != nil {
		return nil, err
	}
	return res, c.checkStatus(req, res)
}

// Refresh asks the API for a new access token using the refresh cookie in
// the client's jar, and stores it. Concurrent callers share one call unless
// coalescing is disabled. A shared call is detached from the caller that
// started it, so one canceled caller does not fail the others.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	if !c.coalesce {
		return c.refresh(ctx)
	}

	flight := c.group.DoChan(refreshFlight, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-flight:
		if res.Shared {
			c.logger.Debug("refresh result shared between concurrent requests")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	res, err := c.send(ctx, &Request{Method: http.MethodGet, Path: c.refreshPath}, "")
	if err != nil {
		c.record(ctx, ActivityEventTokenRefreshFailed, "", map[string]any{"error": err.Error()})
		return "", withMetadata(ErrRefreshFailed, err, map[string]any{"status": 0})
	}

	if res.Status < 200 || res.Status > 299 {
		apiErr := newAPIError(res.Status, res.Body)
		c.record(ctx, ActivityEventTokenRefreshFailed, "", map[string]any{"status": res.Status})
		return "", withMetadata(ErrRefreshFailed, apiErr, map[string]any{"status": res.Status})
	}

	var payload RefreshResponse
	if err := res.Decode(&payload); err != nil {
		return "", withMetadata(ErrRefreshFailed, err, nil)
	}

	if payload.AccessToken == "" {
		c.record(ctx, ActivityEventTokenRefreshFailed, "", map[string]any{"status": res.Status})
		return "", withMetadata(ErrRefreshFailed, ErrMissingAccessToken, nil)
	}

	if err := c.tokens.Set(ctx, payload.AccessToken); err != nil {
		return "", withMetadata(ErrRefreshFailed, err, nil)
	}

	c.record(ctx, ActivityEventTokenRefreshed, "", nil)
	return payload.AccessToken, nil
}

func (c *Client) send(ctx context.Context, req *Request, token string) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to encode request body")
		}
		body = bytes.NewReader(raw)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, newTransportError(err, req.Method, req.Path)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if hreq.Header.Get(HeaderRequestID) == "" {
		hreq.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}

	hres, err := c.http.Do(hreq)
	if err != nil {
		return nil, newTransportError(err, req.Method, req.Path)
	}
	defer hres.Body.Close()

	raw, err := io.ReadAll(hres.Body)
	if err != nil {
		return nil, newTransportError(err, req.Method, req.Path)
	}

	return &Response{
		Status: hres.StatusCode,
		Header: hres.Header,
		Body:   raw,
	}, nil
}

func (c *Client) checkStatus(req *Request, res *Response) error {
	if res.Status >= 200 && res.Status <= 299 {
		return nil
	}

	err := newAPIError(res.Status, res.Body)
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && res.Status >= 500 {
		c.logger.Error("API %s %s failed: %s %s", req.Method, req.Path, richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
	}
	return err
}

func (c *Client) record(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	recordActivity(ctx, c.sink, c.logger, ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: c.now(),
	})
}
