// Package backend is the HTTP client for the account/container/object
// service behind the gateway.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gridstore/swift-s3-gateway/internal/monitoring"
	"github.com/sirupsen/logrus"
)

// Config holds backend client configuration
type Config struct {
	// Endpoint is the base URL of the backend service.
	Endpoint string

	// RequestTimeout bounds a single round trip. Zero means the request
	// lives as long as the inbound connection.
	RequestTimeout time.Duration
}

// Client is a thin HTTP client for the backend. It is shared across
// requests and read-only after construction.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient creates a backend client
func NewClient(cfg *Config, logger *logrus.Entry) (*Client, error) {
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid backend endpoint %q: %w", cfg.Endpoint, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend endpoint %q", cfg.Endpoint)
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			// The gateway streams object bodies; redirects would replay
			// consumed request bodies.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}, nil
}

// Request describes one backend call. Account, Container and Object hold
// already-escaped path segments; Object may contain slashes.
type Request struct {
	Method    string
	Account   string
	Container string
	Object    string

	// RawQuery is appended verbatim. The backend understands bare flags
	// like "versions", which url.Values cannot express.
	RawQuery string

	Header        http.Header
	Body          io.Reader
	ContentLength int64
}

// Path renders the /v1/<account>[/<container>[/<object>]] request path.
func (r *Request) Path() string {
	var buf strings.Builder
	buf.WriteString("/v1/")
	buf.WriteString(r.Account)
	if r.Container != "" {
		buf.WriteByte('/')
		buf.WriteString(r.Container)
		if r.Object != "" {
			buf.WriteByte('/')
			buf.WriteString(r.Object)
		}
	}
	return buf.String()
}

// Response is a backend reply. Body streams and must be closed by the
// caller on every path.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Do dispatches a backend request. The context aborts the round trip when
// the inbound connection goes away.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	rawPath := req.Path()
	endpoint := c.base.Scheme + "://" + c.base.Host +
		strings.TrimSuffix(c.base.Path, "/") + rawPath
	if req.RawQuery != "" {
		endpoint += "?" + req.RawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, req.Body)
	if err != nil {
		return nil, fmt.Errorf("building backend request: %w", err)
	}
	if req.ContentLength > 0 || req.Body == nil {
		httpReq.ContentLength = req.ContentLength
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": req.Method,
			"path":   rawPath,
		}).Warn("Backend request failed")
		return nil, fmt.Errorf("backend request: %w", err)
	}

	elapsed := time.Since(start)
	monitoring.RecordBackendRequest(req.Method, resp.StatusCode, elapsed)

	c.logger.WithFields(logrus.Fields{
		"method":   req.Method,
		"path":     rawPath,
		"status":   resp.StatusCode,
		"duration": elapsed,
	}).Debug("Backend request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Endpoint returns the configured backend base URL.
func (c *Client) Endpoint() *url.URL {
	u := *c.base
	return &u
}
