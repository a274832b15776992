package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/mcpforge/internal/client/session"
	"github.com/dmitrijs2005/mcpforge/internal/client/tokenstore"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
)

const (
	HeaderRequestID = "X-Request-ID"

	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 2 * time.Second
	maxErrorBody        = 1 << 20
)

// Session is the part of the session manager the client relies on: the
// in-memory token and the shared destroy-session effect.
type Session interface {
	AccessToken() string
	Terminate(ctx context.Context, reason session.Reason) error
}

// TokenReader looks up a persisted bearer token when no session token is
// available, e.g. before hydration or for tokens written by older clients.
type TokenReader interface {
	ReadFirstPresent(ctx context.Context, keys []string) (string, bool)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

func WithTokenReader(r TokenReader) Option {
	return func(c *Client) { c.tokens = r }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Client talks JSON over HTTP to the backend. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	session      Session
	tokens       TokenReader
	log          logging.Logger
	pollInterval time.Duration
	requestID    func() string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: defaultTimeout},
		log:          logging.Nop(),
		pollInterval: defaultPollInterval,
		requestID:    uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "api")
	return c
}

// BuildHeaders returns the headers of an authenticated request. The bearer
// token is the first of: explicitToken, the live session's token, the
// persisted token in tokenstore.TokenKeyPrecedence order. When none is
// found no Authorization header is set.
func (c *Client) BuildHeaders(ctx context.Context, explicitToken string) http.Header {
	h := c.baseHeaders()
	if tok := c.bearer(ctx, explicitToken); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

func (c *Client) baseHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set(HeaderRequestID, c.requestID())
	return h
}

func (c *Client) bearer(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c.session != nil {
		if tok := c.session.AccessToken(); tok != "" {
			return tok
		}
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.ReadFirstPresent(ctx, tokenstore.TokenKeyPrecedence); ok {
			return tok
		}
	}
	return ""
}

// Request performs an authenticated call. A 401 ends the session through
// Session.Terminate before ErrUnauthorized is returned, so by the time the
// caller sees the error the store is already empty. Every other status is
// returned untouched; the caller owns resp.Body.
func (c *Client) Request(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, body, c.BuildHeaders(ctx, token))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.log.Warn(ctx, "backend rejected credentials", "method", method, "path", path)
		if c.session != nil {
			if err := c.session.Terminate(ctx, session.ReasonUnauthorized); err != nil {
				c.log.Error(ctx, "forced logout incomplete", "error", err)
			}
		}
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// PublicRequest performs an unauthenticated call. No bearer token is sent
// and a 401 is returned like any other status.
func (c *Client) PublicRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return c.send(ctx, method, path, body, c.baseHeaders())
}

// PostPublic posts body without credentials and decodes the response into
// out whatever its status, for endpoints that report failures in the body.
func (c *Client) PostPublic(ctx context.Context, path string, body, out any) (int, error) {
	resp, err := c.PublicRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = header

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.log.Debug(ctx, "request done", "method", method, "path", path, "status", resp.StatusCode, "request_id", header.Get(HeaderRequestID))
	return resp, nil
}

// call is the typed form of Request: non-2xx becomes *HTTPError and a 2xx
// body is decoded into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any, token string) error {
	resp, err := c.Request(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	return decode(resp, out)
}

// callPublic is call without credentials or the 401 hook.
func (c *Client) callPublic(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.PublicRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", err)}
	}
	var apiErr struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &apiErr) == nil {
		if apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		if apiErr.Detail != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Detail}
		}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
