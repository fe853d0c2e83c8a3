// Package client is a typed HTTP client for the notes API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/trapperkeeper/internal/domain/types"
)

const (
	notesPath         = "/api/v1/notes"
	healthPath        = "/healthz"
	idempotencyHeader = "Idempotency-Key"
	defaultTimeout    = 30 * time.Second
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError reports a response whose status was not among the expected
// ones. Message carries the server's JSON string body when it had one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %d", ErrUnexpectedStatus, e.Code)
	}
	return fmt.Sprintf("%s %d: %s", ErrUnexpectedStatus, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Response is a fully read reply.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Message returns the body as a string, unquoting it when the server sent
// a JSON string.
func (r *Response) Message() string {
	var s string
	if err := json.Unmarshal(r.Body, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r.Body))
}

// Expect returns a *StatusError unless the status is one of codes.
func (r *Response) Expect(codes ...int) error {
	for _, c := range codes {
		if r.Status == c {
			return nil
		}
	}
	return &StatusError{Code: r.Status, Message: r.Message()}
}

// Client talks to one notes server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a client for baseURL, e.g. http://localhost:3000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls /healthz.
func (c *Client) Health(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, healthPath, nil, nil)
}

// List fetches every note and item.
func (c *Client) List(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, notesPath, nil, nil)
}

// Create posts a note. A non-empty idempotencyKey is sent as the
// Idempotency-Key header.
func (c *Client) Create(ctx context.Context, note types.CreateNote, idempotencyKey string) (*Response, error) {
	var hdr http.Header
	if idempotencyKey != "" {
		hdr = http.Header{idempotencyHeader: []string{idempotencyKey}}
	}
	return c.do(ctx, http.MethodPost, notesPath, note, hdr)
}

// Get fetches one note and its items.
func (c *Client) Get(ctx context.Context, id string) (*Response, error) {
	return c.do(ctx, http.MethodGet, notePath(id), nil, nil)
}

// Update retitles a note and replaces its items.
func (c *Client) Update(ctx context.Context, id string, update types.UpdateNote) (*Response, error) {
	return c.do(ctx, http.MethodPut, notePath(id), update, nil)
}

// Delete removes a note and its items.
func (c *Client) Delete(ctx context.Context, id string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, notePath(id), nil, nil)
}

func notePath(id string) string {
	return notesPath + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body any, hdr http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}
