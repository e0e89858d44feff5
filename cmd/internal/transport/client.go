// Package transport performs JSON calls against the platform API.
//
// It owns header conventions (bearer auth, content type, request ids) and turns
// non-2xx responses into *HTTPError. Deadlines are the caller's concern: every
// call runs under the context it is given.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iostack-ai/client-example/cmd/internal/metrics"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Request describes one platform call.
type Request struct {
	// Endpoint is a short, stable name used in logs and metrics.
	Endpoint string
	Method   string
	Path     string
	Query    url.Values
	Bearer   string
	// Body is JSON-encoded when non-nil. A nil Body sends no payload.
	Body any
}

// Client issues platform requests relative to a root URL.
type Client struct {
	root    string
	http    *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a Client. A nil httpClient uses a client without a global timeout;
// per-call deadlines come from the request context.
func New(root string, httpClient *http.Client, log *slog.Logger, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		root:    strings.TrimRight(strings.TrimSpace(root), "/"),
		http:    httpClient,
		log:     log,
		metrics: m,
	}
}

// Root returns the platform root URL.
func (c *Client) Root() string { return c.root }

// Do performs req and returns the response for 2xx statuses. The caller closes
// the body. Any other status is returned as *HTTPError with the body consumed.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(req.Endpoint, "transport_error", elapsed)
		c.log.Warn("platform.call.fail", "endpoint", req.Endpoint, "err", err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		herr := readHTTPError(resp)
		c.metrics.ObserveRequest(req.Endpoint, statusClass(resp.StatusCode), elapsed)
		c.log.Warn("platform.call.status",
			"endpoint", req.Endpoint,
			"status", resp.StatusCode,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", httpReq.Header.Get("X-Request-ID"),
		)
		return nil, herr
	}

	c.metrics.ObserveRequest(req.Endpoint, statusClass(resp.StatusCode), elapsed)
	c.log.Debug("platform.call",
		"endpoint", req.Endpoint,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", httpReq.Header.Get("X-Request-ID"),
	)
	return resp, nil
}

// DoJSON performs req and decodes a JSON response into dst.
func (c *Client) DoJSON(ctx context.Context, req Request, dst any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Endpoint, err)
	}
	return nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	if c.root == "" || req.Method == "" || req.Path == "" {
		return nil, ErrBadRequest
	}

	u := c.root + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	if id, err := NewRequestID(time.Now().UTC()); err == nil {
		httpReq.Header.Set("X-Request-ID", id)
	}

	return httpReq, nil
}

type errorBody struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
}

func readHTTPError(resp *http.Response) *HTTPError {
	herr := &HTTPError{
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return herr
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		herr.Message = strings.TrimSpace(string(raw))
		return herr
	}

	switch {
	case eb.Message != "":
		herr.Message = eb.Message
	case eb.Detail != nil:
		herr.Message = detailString(eb.Detail)
	}
	return herr
}

func detailString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
