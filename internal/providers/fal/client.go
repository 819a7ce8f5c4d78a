// Package fal talks to the fal.ai queue API: submit, poll status with logs,
// fetch results and cancel.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portraitbot/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fal: api key is required")

// Queue states reported by the status endpoint.
const (
	StateInQueue    = "IN_QUEUE"
	StateInProgress = "IN_PROGRESS"
	StateCompleted  = "COMPLETED"
)

// Options configures the queue client.
type Options struct {
	APIKey         string
	QueueURL       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the fal queue.
type Client struct {
	apiKey     string
	queueURL   string
	httpClient *http.Client
	logger     infra.Logger
}

// Request identifies a submitted queue request.
type Request struct {
	App         string `json:"-"`
	ID          string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
	CancelURL   string `json:"cancel_url"`
}

// LogEntry is a single progress line emitted by the remote job.
type LogEntry struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Status is a snapshot of a queued request.
type Status struct {
	State    string     `json:"status"`
	Position *int       `json:"queue_position,omitempty"`
	Logs     []LogEntry `json:"logs"`
	Error    string     `json:"error,omitempty"`
}

// Completed reports whether the request reached its terminal state.
func (s Status) Completed() bool {
	return s.State == StateCompleted
}

// APIError carries a non-success HTTP response from the queue.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("fal: status %d", e.StatusCode)
	}
	return fmt.Sprintf("fal: status %d: %s", e.StatusCode, e.Detail)
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	queueURL := strings.TrimRight(strings.TrimSpace(opts.QueueURL), "/")
	if queueURL == "" {
		queueURL = "https://queue.fal.run"
	}
	if _, err := url.Parse(queueURL); err != nil {
		return nil, fmt.Errorf("fal: invalid queue url: %w", err)
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		queueURL:   queueURL,
		httpClient: httpClient,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit enqueues input for app and returns the request handle.
func (c *Client) Submit(ctx context.Context, app string, input any) (*Request, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	app = strings.Trim(strings.TrimSpace(app), "/")
	if app == "" {
		return nil, errors.New("fal: app id is required")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("fal: encode request: %w", err)
	}
	var req Request
	if err := c.do(ctx, http.MethodPost, c.queueURL+"/"+app, bytes.NewReader(body), &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, errors.New("fal: empty request id")
	}
	req.App = app
	c.fillURLs(&req)
	c.logger.Debug().Str("app", app).Str("request_id", req.ID).Msg("fal: request submitted")
	return &req, nil
}

// Status polls the request and includes its accumulated logs.
func (c *Client) Status(ctx context.Context, req *Request) (*Status, error) {
	endpoint, err := withLogs(req.StatusURL)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Result decodes the completed request's output into out.
func (c *Client) Result(ctx context.Context, req *Request, out any) error {
	return c.do(ctx, http.MethodGet, req.ResponseURL, nil, out)
}

// Cancel asks the queue to drop the request. Completed requests cannot be cancelled.
func (c *Client) Cancel(ctx context.Context, req *Request) error {
	return c.do(ctx, http.MethodPut, req.CancelURL, nil, nil)
}

func (c *Client) fillURLs(req *Request) {
	base := fmt.Sprintf("%s/%s/requests/%s", c.queueURL, appBase(req.App), req.ID)
	if req.StatusURL == "" {
		req.StatusURL = base + "/status"
	}
	if req.ResponseURL == "" {
		req.ResponseURL = base
	}
	if req.CancelURL == "" {
		req.CancelURL = base + "/cancel"
	}
}

// appBase keeps the owner/name prefix; queue request URLs drop any sub path.
func appBase(app string) string {
	parts := strings.SplitN(app, "/", 3)
	if len(parts) < 2 {
		return app
	}
	return parts[0] + "/" + parts[1]
}

func withLogs(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("fal: invalid status url: %q", raw)
	}
	q := u.Query()
	q.Set("logs", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("fal: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fal: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fal: decode response: %w", err)
	}
	return nil
}

func errorDetail(raw []byte) string {
	var decoded struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil {
		switch d := decoded.Detail.(type) {
		case string:
			return d
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if decoded.Error != "" {
			return decoded.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
