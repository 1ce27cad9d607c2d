package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"golang.org/x/net/context"

	"github.com/contentmigrate/cm-cli/internal/config"
)

// ErrNotFound is returned for HTTP 404 responses. Lookup call sites
// tolerate it; create call sites treat it as fatal.
var ErrNotFound = errors.New("not found")

// CodeRateExceeded is the platform error code for API rate limiting.
// It is the only platform-coded error that is retried.
const CodeRateExceeded = 10000

// APIError is a platform error envelope decoded from a non-2xx response.
type APIError struct {
	StatusCode int
	ErrorCode  int               `json:"error_code"`
	Message    string            `json:"message"`
	Validation []ValidationIssue `json:"validation_errors,omitempty"`
}

// ValidationIssue is one entry of a platform validation failure.
type ValidationIssue struct {
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("api error %d (HTTP %d): %s", e.ErrorCode, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsBadPublish reports whether err is a server-side validation rejection of
// a publish call. The workflow driver logs these and continues.
func IsBadPublish(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && len(apiErr.Validation) > 0
}

// Client wraps HTTP calls to a management API environment, retrying
// transient failures.
type Client struct {
	env   config.Environment
	http  *http.Client
	clock clock.Clock
}

// New creates a management API client for one environment.
func New(env config.Environment) *Client {
	return &Client{
		env:   env,
		http:  &http.Client{Timeout: 30 * time.Second},
		clock: clock.WallClock,
	}
}

// NewWithClock creates a client whose retry backoff waits on clk instead
// of the wall clock.
func NewWithClock(env config.Environment, clk clock.Clock) *Client {
	c := New(env)
	c.clock = clk
	return c
}

// retryable reports whether an error may succeed on a later attempt:
// transport failures, 5xx responses without a platform code, and the
// rate-limit code. Everything else surfaces immediately.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode != 0 {
			return apiErr.ErrorCode == CodeRateExceeded
		}
		return apiErr.StatusCode >= 500
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return retry.Call(retry.CallArgs{
		Func: func() error {
			return c.doOnce(ctx, method, path, body, out)
		},
		IsFatalError: func(err error) bool {
			return !retryable(err)
		},
		Attempts:    3,
		Delay:       time.Second,
		BackoffFunc: retry.ExpBackoff(time.Second, 16*time.Second, 2.0, true),
		Clock:       c.clock,
		Stop:        ctx.Done(),
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	url := c.env.ProjectURL() + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.env.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		var envelope APIError
		if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
			apiErr.ErrorCode = envelope.ErrorCode
			apiErr.Message = envelope.Message
			apiErr.Validation = envelope.Validation
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Get performs a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// PostBinary uploads raw bytes and decodes the response into out. Used for
// asset binary uploads, which do not take a JSON body.
func (c *Client) PostBinary(ctx context.Context, path string, data []byte, contentType string, out any) error {
	return retry.Call(retry.CallArgs{
		Func: func() error {
			return c.postBinaryOnce(ctx, path, data, contentType, out)
		},
		IsFatalError: func(err error) bool {
			return !retryable(err)
		},
		Attempts:    3,
		Delay:       time.Second,
		BackoffFunc: retry.ExpBackoff(time.Second, 16*time.Second, 2.0, true),
		Clock:       c.clock,
		Stop:        ctx.Done(),
	})
}

func (c *Client) postBinaryOnce(ctx context.Context, path string, data []byte, contentType string, out any) error {
	url := c.env.ProjectURL() + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	req.Header.Set("Authorization", "Bearer "+c.env.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		var envelope APIError
		if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
			apiErr.ErrorCode = envelope.ErrorCode
			apiErr.Message = envelope.Message
		}
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// GetPage performs a GET with an x-continuation header for paginated
// listing endpoints. An empty token fetches the first page.
func (c *Client) GetPage(ctx context.Context, path, continuation string, out any) error {
	return retry.Call(retry.CallArgs{
		Func: func() error {
			return c.getPageOnce(ctx, path, continuation, out)
		},
		IsFatalError: func(err error) bool {
			return !retryable(err)
		},
		Attempts:    3,
		Delay:       time.Second,
		BackoffFunc: retry.ExpBackoff(time.Second, 16*time.Second, 2.0, true),
		Clock:       c.clock,
		Stop:        ctx.Done(),
	})
}

func (c *Client) getPageOnce(ctx context.Context, path, continuation string, out any) error {
	url := c.env.ProjectURL() + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.env.APIKey)
	if continuation != "" {
		req.Header.Set("x-continuation", continuation)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		var envelope APIError
		if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
			apiErr.ErrorCode = envelope.ErrorCode
			apiErr.Message = envelope.Message
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Download fetches an absolute URL (asset binaries live outside the
// project API scope) and returns the raw bytes and content type.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("download %s: %w", url, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: "binary download failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read binary: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
