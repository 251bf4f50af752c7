// Package rest implements service.Service against the task REST backend.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"todo/internal/logging"
	"todo/internal/service"
)

// APITimeout is the default timeout for each backend call.
const APITimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:5000.
	BaseURL string

	// Timeout bounds each request. Zero means APITimeout.
	Timeout time.Duration

	// SessionPath is where the session cookies are persisted. Empty disables persistence.
	SessionPath string

	Logger *log.Logger
}

// Client implements service.Service and service.Authenticator for the REST backend.
type Client struct {
	base        *url.URL
	http        *http.Client
	timeout     time.Duration
	sessionPath string
	logger      *log.Logger
	session     *service.Session
}

// New creates a Client and restores a persisted session when present.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Jar: jar,
			// Redirects are answers here: a redirect to /login means the session is gone.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:     opts.Timeout,
		sessionPath: opts.SessionPath,
		logger:      opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = APITimeout
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}

	if err := c.restore(); err != nil {
		return nil, err
	}
	return c, nil
}

// HTTPClient returns the cookie-carrying client, for endpoints on the same backend.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// taskJSON is the wire form of a task.
type taskJSON struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Completed   bool   `json:"completed"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func (t taskJSON) task() service.Task {
	return service.Task{
		ID:          strconv.FormatInt(t.ID, 10),
		Description: t.Description,
		Category:    service.Category(strings.ToLower(t.Category)),
		Completed:   t.Completed,
		Created:     parseTimestamp(t.Timestamp),
	}
}

// parseTimestamp accepts RFC 3339 and the naive ISO form the backend emits for UTC rows.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var raw []taskJSON
	if err := c.doJSON(ctx, http.MethodGet, "/tasks", nil, "tasks.json", &raw); err != nil {
		return nil, err
	}
	tasks := make([]service.Task, 0, len(raw))
	for _, t := range raw {
		tasks = append(tasks, t.task())
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, description string, category service.Category) (service.Task, error) {
	body := map[string]any{
		"description": description,
		"category":    string(category),
		"completed":   false,
	}
	var raw taskJSON
	if err := c.doJSON(ctx, http.MethodPost, "/tasks", body, "task.json", &raw); err != nil {
		return service.Task{}, err
	}
	return raw.task(), nil
}

// UpdateTask implements service.Service. Only the fields set in patch are sent.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	path, err := taskPath(id)
	if err != nil {
		return service.Task{}, err
	}
	body := map[string]any{}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Category != nil {
		body["category"] = string(*patch.Category)
	}
	if patch.Completed != nil {
		body["completed"] = *patch.Completed
	}

	var raw taskJSON
	if err := c.doJSON(ctx, http.MethodPut, path, body, "task.json", &raw); err != nil {
		return service.Task{}, err
	}
	return raw.task(), nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path, err := taskPath(id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, "", nil)
}

func taskPath(id string) (string, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", fmt.Errorf("%w: invalid task id %q", service.ErrNotFound, id)
	}
	return "/tasks/" + id, nil
}

// doJSON performs an API call. A non-empty schema validates the response body
// before it is decoded into dst.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, schema string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if err := statusError(resp, data); err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if schema != "" {
		if err := validate(schema, data); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformed, err)
	}
	return nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, wrapError(err)
	}
	c.logger.Debug("request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "took", time.Since(start))
	return resp, nil
}

// statusError maps backend status codes to service errors.
func statusError(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode >= 300 && resp.StatusCode <= 399:
		if redirectsToLogin(resp) {
			return service.ErrNotLoggedIn
		}
		return fmt.Errorf("unexpected redirect to %s", resp.Header.Get("Location"))
	case resp.StatusCode == http.StatusUnauthorized:
		return service.ErrNotLoggedIn
	case resp.StatusCode == http.StatusForbidden:
		return service.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return service.ErrNotFound
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("backend error %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("backend error %d", resp.StatusCode)
}

func redirectsToLogin(resp *http.Response) bool {
	loc, err := resp.Location()
	if err != nil {
		return false
	}
	return loc.Path == "/login" || strings.HasSuffix(loc.Path, "/login")
}

// wrapError converts transport errors to service errors.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	return fmt.Errorf("backend unreachable: %w", err)
}
