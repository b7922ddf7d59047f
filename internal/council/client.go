package council

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/waabox/councildeck/internal/domain"
)

const (
	defaultBaseURL   = "http://localhost:8001"
	defaultUserAgent = "councildeck"
)

// Client talks to the LLM Council backend.
// It holds no mutable state: every call is a fresh round trip with no retries or caching.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	log       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// New creates a Client. Without options it targets the local backend.
// The underlying http.Client has no timeout unless WithTimeout is given, so the
// token endpoint may hold the connection open for as long as the backend decides.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithBaseURL sets the backend base endpoint. Pass a test server URL in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if baseURL == "" {
			return errors.New("base URL is required")
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.http = hc
		return nil
	}
}

// WithTimeout sets a transport timeout on every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("negative timeout: %s", d)
		}
		c.http.Timeout = d
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua != "" {
			c.userAgent = ua
		}
		return nil
	}
}

// WithLogger installs a structured logger for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// BaseURL returns the backend base endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs one round trip. body is JSON-encoded when non-nil; out is decoded when non-nil.
// Every failure is returned as *domain.ServiceError tagged with op.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return &domain.ServiceError{Op: op, Err: fmt.Errorf("building URL: %w", err)}
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &domain.ServiceError{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return &domain.ServiceError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("op", op).Str("url", endpoint).Err(err).Msg("request failed")
		return &domain.ServiceError{Op: op, Err: &domain.TransportError{Err: err}}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused; the body carries no meaning here
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &domain.ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("backend error: %s", resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ServiceError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
