package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"projectdesk/internal/domain"

	"github.com/google/uuid"
)

// CredentialSource supplies the bearer credential for authenticated requests.
type CredentialSource interface {
	Credential() (string, bool)
}

// Client talks to the project-management backend. It attaches the bearer
// credential, encodes bodies and maps every failure to the domain taxonomy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a whole-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
		}
	}
}

// New creates a client for baseURL, reading credentials from creds.
func New(baseURL string, creds CredentialSource, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		creds:      creds,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Do executes req and decodes a successful JSON body into out (if non-nil).
// No request is sent for an authenticated call without a credential.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return err
	}

	requestID := httpReq.Header.Get("X-Request-ID")
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed",
			"method", req.method,
			"path", req.path,
			"request_id", requestID,
			"error", err,
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &domain.NetworkError{Message: "request cancelled", Err: ctxErr}
		}
		return &domain.NetworkError{Message: fmt.Sprintf("%s %s: %v", req.method, req.path, err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Message: "failed to read response", Err: err}
	}

	c.logger.Debug("api call",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp.StatusCode, body, req.fallback)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ServerError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected response from %s", req.path),
		}
	}
	return nil
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	if req.encodeErr != nil {
		return nil, fmt.Errorf("encode request body: %w", req.encodeErr)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	if !req.anonymous {
		credential, ok := c.credential()
		if !ok {
			return nil, domain.ErrNotSignedIn
		}
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}

	return httpReq, nil
}

func (c *Client) credential() (string, bool) {
	if c.creds == nil {
		return "", false
	}
	return c.creds.Credential()
}

// IsNotSignedIn reports whether err was raised locally for a missing credential.
func IsNotSignedIn(err error) bool {
	return errors.Is(err, domain.ErrNotSignedIn)
}
