// Package backend is the gateway's client for the externally owned account
// and application service.
//
// Every call settles into either a decoded JSON Response or an *Error; no
// call panics and non-JSON bodies are never parsed. The bearer token is
// opaque here and forwarded as-is.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/doozitravel/gateway/internal/reconcile"
)

// Outcomes reported to an Observer.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeNotJSON   = "not_json"
	OutcomeTransport = "transport"
)

const maxBodyBytes = 1 << 20

// Observer is told about every finished call. endpoint is a short stable
// name such as "login", never a full URL.
type Observer func(endpoint, outcome string, elapsed time.Duration)

// Client talks to the backend.
type Client struct {
	base       string
	httpClient *http.Client
	logger     *zap.Logger
	observe    Observer
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout bounds every request made by the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// WithLogger sets the logger used for backend failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithObserver installs a per-call hook, typically a metrics counter.
func WithObserver(o Observer) Option {
	return func(c *Client) error {
		c.observe = o
		return nil
	}
}

// New creates a Client for the backend rooted at base.
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", base)
	}

	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Response is a decoded JSON reply, whatever its status.
type Response struct {
	Status int
	Body   reconcile.Payload
}

// OK reports a 2xx status whose body does not say success:false.
func (r *Response) OK() bool {
	if r.Status < 200 || r.Status >= 300 {
		return false
	}
	if v, present := r.Body["success"]; present {
		ok, err := cast.ToBoolE(v)
		return err == nil && ok
	}
	return true
}

// Message returns the backend's error or message text, if any.
func (r *Response) Message() string {
	for _, k := range []string{"error", "message"} {
		if s, err := cast.ToStringE(r.Body[k]); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// Err converts an unsuccessful response into an *Error. A 2xx that still
// reports failure takes fallbackStatus. The backend's own error string is
// passed through; fallbackMsg is used when it sent none.
func (r *Response) Err(fallbackStatus int, fallbackMsg string) *Error {
	if r.OK() {
		return nil
	}
	status := r.Status
	if status < 400 {
		status = fallbackStatus
	}
	msg, _ := cast.ToStringE(r.Body["error"])
	if msg == "" {
		msg = fallbackMsg
	}
	return &Error{Status: status, Message: msg}
}

// Data returns the first of data or result that is an object.
func (r *Response) Data() reconcile.Payload {
	for _, k := range []string{"data", "result"} {
		if m, ok := r.Body[k].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// ─── Request id ──────────────────────────────────────────────────────────

type requestIDKey struct{}

// ContextWithRequestID attaches the id forwarded as X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ─── Core call ───────────────────────────────────────────────────────────

// Do sends one JSON request. token may be empty for public endpoints and
// body may be nil. Transport failures and non-JSON replies come back as
// *Error; any JSON reply, successful or not, comes back as a Response.
func (c *Client) Do(ctx context.Context, endpoint, method, path, token string, body any) (*Response, error) {
	start := time.Now()
	resp, outcome, err := c.do(ctx, method, path, token, body)
	if c.observe != nil {
		c.observe(endpoint, outcome, time.Since(start))
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*Response, string, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, OutcomeTransport, AsError(fmt.Errorf("marshal request body: %w", err))
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, OutcomeTransport, AsError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, OutcomeTransport, &Error{
			Status:  http.StatusInternalServerError,
			Message: GenericMessage,
			Cause:   fmt.Errorf("%w: %w", ErrTransport, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, OutcomeTransport, &Error{
			Status:  http.StatusInternalServerError,
			Message: GenericMessage,
			Cause:   fmt.Errorf("read response: %w", err),
		}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		c.logger.Warn("backend returned non-JSON response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(raw, 200)))
		return nil, OutcomeNotJSON, &Error{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Backend returned %d", resp.StatusCode),
			Cause:   ErrNotJSON,
		}
	}

	var payload reconcile.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn("backend returned malformed JSON",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, OutcomeNotJSON, &Error{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Backend returned %d", resp.StatusCode),
			Cause:   fmt.Errorf("%w: %w", ErrNotJSON, err),
		}
	}
	if payload == nil {
		payload = reconcile.Payload{}
	}

	out := &Response{Status: resp.StatusCode, Body: payload}
	if !out.OK() {
		c.logger.Warn("backend rejected request",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("error", out.Message()))
		return out, OutcomeRejected, nil
	}
	return out, OutcomeOK, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
