package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	// BaseURL is prepended to every request path, e.g. "http://127.0.0.1:5000".
	BaseURL string

	// Timeout for individual requests.
	// Default: 30s
	Timeout time.Duration

	// RequestsPerSecond paces requests to the backend. Zero disables pacing.
	RequestsPerSecond float64

	// UserAgent sent with every request.
	// Default: "TubeSync"
	UserAgent string
}

// DefaultOptions returns options pointing at a local backend.
func DefaultOptions() Options {
	return Options{
		BaseURL:           "http://127.0.0.1:5000",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		UserAgent:         "TubeSync",
	}
}

// StatusError is returned when the backend answers with a non-2xx status.
// Body holds at most the first 4KB of the response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Client wraps HTTP operations against the TubeSync backend.
//
// Client provides:
//   - Base URL resolution
//   - Request pacing with a token bucket
//   - An X-Request-ID header per request
//   - JSON request and response helpers
//   - File download with progress tracking
type Client struct {
	httpClient *http.Client

	// fileClient has no overall timeout: file bodies may take longer than
	// Timeout to stream. Only the wait for response headers is bounded.
	fileClient *http.Client

	baseURL   *url.URL
	userAgent string
	limiter   *rate.Limiter
	sessionID string
}

// NewClient creates a Client. An invalid BaseURL is reported here rather
// than on the first request.
func NewClient(opts Options) (*Client, error) {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.Timeout

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: transport},
		fileClient: &http.Client{Transport: transport},
		baseURL:    base,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(limit, burst),
		sessionID:  uuid.NewString(),
	}, nil
}

// SessionID identifies this client in backend logs.
func (c *Client) SessionID() string {
	return c.sessionID
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// ProgressWriter wraps a writer to track download progress.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length), -1 if unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Session-ID", c.sessionID)
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	return c.send(c.httpClient, req)
}

func (c *Client) send(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Body: body}
	}
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into out.
//
// Returns a *StatusError if the response status is not 2xx.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

// PostJSON encodes in as the request body, performs a POST request and
// decodes the JSON response into out. out may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Get performs a GET request against an absolute URL and returns the body.
// It is used for resources outside the backend, such as thumbnails.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// DownloadFile streams path to destPath with an optional progress callback.
//
// The file is created (or truncated) and the content is streamed directly
// to disk. On failure the partial file is removed. Options.Timeout bounds
// the wait for the response headers; the body is limited by ctx alone.
func (c *Client) DownloadFile(ctx context.Context, path, destPath string, onProgress func(written, total int64)) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.send(c.fileClient, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	file, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	n, err := io.Copy(writer, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return n, err
	}
	return n, nil
}
