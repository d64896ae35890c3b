package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/logger"
	"github.com/angelmondragon/packfinderz-driver/pkg/metrics"
)

const defaultTimeout = 30 * time.Second

const (
	errorBodyReadLimit   int64 = 4096
	responseBodyMaxBytes int64 = 8 << 20
)

var errBaseURLRequired = errors.New("backend base url is required")

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the delivery backend over Bearer-authenticated JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logg       *logger.Logger
	metrics    *metrics.TrackingMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) { c.tokens = tokens }
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.TrackingMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the backend client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SetTokenSource wires the token source after construction; the session
// store needs the client to log in and the client needs the store for tokens.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

type call struct {
	op     string
	method string
	path   string
	body   any
	authed bool
}

// do executes the call and returns the response body with any {"data": ...}
// envelope removed.
func (c *Client) do(ctx context.Context, in call) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.execute(ctx, in)
	c.metrics.ObserveBackend(in.op, err == nil, time.Since(start))
	if err != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"backend_op":     in.op,
			"error_category": pkgerrors.CategoryOf(err).String(),
		})
		c.logg.Warn(ctx, "backend call failed")
	}
	return raw, err
}

func (c *Client) execute(ctx context.Context, in call) (json.RawMessage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}
	var reader io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+in.op+" request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, c.baseURL+in.path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+in.op+" request")
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.authed {
		if c.tokens == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.FromTransport(err, in.op+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, statusError(in.op, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyMaxBytes))
	if err != nil {
		return nil, pkgerrors.FromTransport(err, "read "+in.op+" response")
	}
	return unwrapData(body), nil
}

// unwrapData strips a {"data": ...} envelope when present.
func unwrapData(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return trimmed
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// httpStatusError keeps the raw backend reply as the cause of a typed error.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func statusError(op string, status int, body []byte) error {
	cause := &httpStatusError{Code: status, Body: strings.TrimSpace(string(body))}
	message := backendMessage(body)
	if message == "" {
		message = fmt.Sprintf("%s failed with status %d", op, status)
	}
	return pkgerrors.Wrap(codeForStatus(status), cause, message)
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeStateConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return pkgerrors.CodeTimeout
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return pkgerrors.CodeConnectivity
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

// backendMessage extracts a human message from the common error shapes.
func backendMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if isNull(payload.Error) {
		return ""
	}
	var asString string
	if err := json.Unmarshal(payload.Error, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
