// Package slack implements the subset of the Slack Web API needed to
// deliver notifications: posting messages, resolving permalinks, external
// file uploads and cursor-paginated directory lookups. Every call goes
// through a shared rate limiter and returns classified API errors.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        = "https://slack.com/api"
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second

	// Slack's chat.postMessage tier allows roughly one message per second
	// per channel.
	defaultRateLimit = 1.0
)

// Config holds Slack client configuration.
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	RateLimit      float64 // requests per second
}

// Client talks to the Slack Web API with bearer authentication.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter

	// uploadLimit is the pre-flight file size ceiling. Overridable in tests.
	uploadLimit int64
}

// NewClient creates a new Slack Web API client.
// Returns an error if the token is missing, before any network call.
func NewClient(config Config) (*Client, error) {
	if config.Token == "" {
		return nil, &PreconditionError{Message: "slack client: token is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultRateLimit
	}

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		limiter:     rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		uploadLimit: maxUploadBytes,
	}, nil
}

// PreconditionError indicates invalid input detected before any network
// call was issued. It is never retried.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// IsRetryable returns false: precondition failures cannot be fixed by retrying.
func (e *PreconditionError) IsRetryable() bool { return false }

// Envelope is the common wrapper every Web API response carries.
type Envelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Needed string `json:"needed,omitempty"`
}

// TransportError wraps a connection or HTTP-level failure. These are
// eligible for retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("slack api %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable returns true: network failures are transient by assumption.
func (e *TransportError) IsRetryable() bool { return true }

// postJSON issues a JSON POST to the given API method and decodes the
// response into out, which must embed Envelope.
func (c *Client) postJSON(ctx context.Context, method string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/"+method, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.do(req, method, out)
}

// getForm issues a GET with query parameters to the given API method.
func (c *Client) getForm(ctx context.Context, method string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/"+method+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}

	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method, Err: fmt.Errorf("read response: %w", err)}
	}

	// Slack signals most failures inside the envelope with a 200 status.
	// A non-2xx status without a decodable envelope is a transport problem.
	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &TransportError{Op: method, Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body))}
		}
		return &TransportError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// IsPrecondition reports whether err originates from input validation
// rather than from a delivery attempt.
func IsPrecondition(err error) bool {
	var pre *PreconditionError
	return errors.As(err, &pre)
}
