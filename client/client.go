// Package client provides the HTTP client for connecting to the meeting
// service API. It handles request construction, retry logic, authentication
// headers, and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	merrors "github.com/DavidC001/meetingAssistant-sub001/pkg/errors"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/logging"
)

// Default connection settings.
const (
	DefaultRequestTimeout    = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 100 * time.Millisecond
	DefaultMaxBackoff        = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// TokenProvider supplies the API token attached to each request. Returning
// an empty token with a nil error sends the request unauthenticated.
type TokenProvider func() (string, error)

// ClientOptions configures the Client behavior.
type ClientOptions struct {
	// RequestTimeout is the maximum time for a single request attempt.
	RequestTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient
	// failures. Authoritative failures (4xx other than 408/429) never retry.
	MaxRetries int

	// InitialBackoff is the initial backoff duration for retries.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration for retries.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Token supplies the bearer token for the Authorization header.
	Token TokenProvider

	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client

	Logger logging.Logger
}

// DefaultOptions returns ClientOptions with default values.
func DefaultOptions() *ClientOptions {
	return &ClientOptions{
		RequestTimeout:    DefaultRequestTimeout,
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// Client talks to the meeting service REST API.
type Client struct {
	baseURL string
	http    *http.Client
	options *ClientOptions

	// instanceID identifies this client process in request headers so the
	// server can correlate polls from the same dashboard.
	instanceID string

	log logging.Logger
}

// New creates a Client for the given base URL (e.g. "https://api.example.com").
func New(baseURL string, opts *ClientOptions) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.BackoffMultiplier <= 1 {
		opts.BackoffMultiplier = DefaultBackoffMultiplier
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       hc,
		options:    opts,
		instanceID: uuid.NewString(),
		log:        log.With(logging.F("component", "client")),
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// InstanceID returns this client's process-unique identifier.
func (c *Client) InstanceID() string {
	return c.instanceID
}

// APIError is a non-2xx response from the server. It unwraps to the domain
// sentinel matching the status code so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return merrors.ErrNotFound
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return merrors.ErrUnauthorized
	case e.StatusCode == http.StatusConflict:
		return merrors.ErrConflict
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity:
		return merrors.ErrValidation
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= 500:
		return merrors.ErrTransient
	default:
		return nil
	}
}

// errorBody is the server's JSON error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doJSON performs one API call with retry, marshaling body (if non-nil) and
// unmarshaling the response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := startSpan(ctx, op, method, path)
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
	}

	err := c.withRetry(ctx, func() error {
		return c.once(ctx, method, path, payload, out)
	})
	finishSpan(span, err)
	return err
}

// once performs a single request attempt.
func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	rctx, cancel := context.WithTimeout(ctx, c.options.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(rctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Client-Instance", c.instanceID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.options.Token != nil {
		token, err := c.options.Token()
		if err != nil {
			return fmt.Errorf("loading API token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Includes timeouts via the request context. Classified transient:
		// the network failing says nothing about the pipeline.
		return fmt.Errorf("%s %s: %w: %v", method, path, merrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
		var eb errorBody
		if data, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); rerr == nil {
			if json.Unmarshal(data, &eb) == nil {
				if eb.Error != "" {
					apiErr.Message = eb.Error
				} else if eb.Message != "" {
					apiErr.Message = eb.Message
				}
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// withRetry executes fn with exponential backoff. Only transient failures
// retry; an authoritative server answer is returned immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	backoff := c.options.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.options.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !merrors.IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == c.options.MaxRetries {
			break
		}

		c.log.Debug("transient request failure, backing off",
			logging.Err(err),
			logging.F("attempt", attempt+1),
			logging.F("backoff", backoff))

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled during backoff: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.options.BackoffMultiplier)
		if backoff > c.options.MaxBackoff {
			backoff = c.options.MaxBackoff
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", c.options.MaxRetries+1, lastErr)
}

// pathEscape escapes one path segment.
func pathEscape(s string) string {
	return url.PathEscape(s)
}
