// Package googletasks implements service.Service using the Google Tasks API.
// Each category is a task list titled after it; the lists are created on
// first use.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todo/internal/config"
	"todo/internal/logging"
	"todo/internal/service"
)

const (
	// PageSize is the number of items requested per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements service.Service and service.Authenticator using Google Tasks.
type Client struct {
	cfg    *config.Config
	logger *log.Logger

	// Prompt receives the browser URL during Login. Defaults to os.Stderr.
	Prompt io.Writer

	mu    sync.Mutex
	svc   *tasks.Service
	lists map[service.Category]string
}

// New creates a Google Tasks client. Without a stored token the client can
// only log in.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	c := &Client{cfg: cfg, logger: logger, Prompt: os.Stderr}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if !cfg.HasToken() {
		return c, nil
	}

	oauthConfig, err := c.oauthConfig()
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	if err := c.connect(ctx, option.WithHTTPClient(httpClient)); err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithHTTPClient creates a signed-in client with a custom HTTP client and endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	c := &Client{logger: logging.Discard(), Prompt: io.Discard}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if err := c.connect(ctx, opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context, opts ...option.ClientOption) error {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create tasks service: %w", err)
	}
	c.mu.Lock()
	c.svc = svc
	c.lists = make(map[service.Category]string)
	c.mu.Unlock()
	return nil
}

func (c *Client) oauthConfig() (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(c.cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

func (c *Client) service() (*tasks.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc == nil {
		return nil, service.ErrNotLoggedIn
	}
	return c.svc, nil
}

// listID returns the ID of the category's list, creating it when create is set.
// An empty ID with no error means the list does not exist.
func (c *Client) listID(ctx context.Context, svc *tasks.Service, cat service.Category, create bool) (string, error) {
	c.mu.Lock()
	id, ok := c.lists[cat]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	err := svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, l := range resp.Items {
			if strings.EqualFold(strings.TrimSpace(l.Title), cat.Title()) && id == "" {
				id = l.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}

	if id == "" && create {
		list, err := svc.Tasklists.Insert(&tasks.TaskList{Title: cat.Title()}).Context(ctx).Do()
		if err != nil {
			return "", wrapError(err)
		}
		id = list.Id
		c.logger.Debug("created task list", "title", list.Title, "id", id)
	}
	if id != "" {
		c.mu.Lock()
		c.lists[cat] = id
		c.mu.Unlock()
	}
	return id, nil
}

func taskID(listID, id string) string {
	return listID + "/" + id
}

func splitID(id string) (listID, taskID string, err error) {
	listID, taskID, ok := strings.Cut(id, "/")
	if !ok || listID == "" || taskID == "" {
		return "", "", fmt.Errorf("%w: invalid task id %q", service.ErrNotFound, id)
	}
	return listID, taskID, nil
}

func toTask(listID string, cat service.Category, t *tasks.Task) service.Task {
	out := service.Task{
		ID:          taskID(listID, t.Id),
		Description: t.Title,
		Category:    cat,
		Completed:   t.Status == statusCompleted,
	}
	out.Created, _ = time.Parse(time.RFC3339, t.Updated)
	return out
}

// ListTasks implements service.Service: every task of both category lists.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	svc, err := c.service()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.Task
	for _, cat := range service.Categories {
		listID, err := c.listID(ctx, svc, cat, false)
		if err != nil {
			return nil, err
		}
		if listID == "" {
			continue
		}
		err = svc.Tasks.List(listID).
			MaxResults(PageSize).
			ShowCompleted(true).
			ShowHidden(true).
			ShowDeleted(false).
			Pages(ctx, func(resp *tasks.Tasks) error {
				for _, t := range resp.Items {
					result = append(result, toTask(listID, cat, t))
				}
				return nil
			})
		if err != nil {
			return nil, wrapError(err)
		}
	}
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, description string, category service.Category) (service.Task, error) {
	svc, err := c.service()
	if err != nil {
		return service.Task{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	listID, err := c.listID(ctx, svc, category, true)
	if err != nil {
		return service.Task{}, err
	}
	t, err := svc.Tasks.Insert(listID, &tasks.Task{Title: description, Status: statusNeedsAction}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return toTask(listID, category, t), nil
}

// UpdateTask implements service.Service. A category change moves the task to
// the other list, which gives it a new ID.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	svc, err := c.service()
	if err != nil {
		return service.Task{}, err
	}
	listID, tID, err := splitID(id)
	if err != nil {
		return service.Task{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	cur, err := svc.Tasks.Get(listID, tID).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	cat, err := c.categoryOf(ctx, svc, listID)
	if err != nil {
		return service.Task{}, err
	}

	upd := &tasks.Task{Title: cur.Title, Status: cur.Status}
	if patch.Description != nil {
		upd.Title = *patch.Description
	}
	if patch.Completed != nil {
		upd.Status = statusNeedsAction
		upd.NullFields = []string{"Completed"}
		if *patch.Completed {
			upd.Status = statusCompleted
			upd.NullFields = nil
		}
	}

	if patch.Category != nil && *patch.Category != cat {
		dest, err := c.listID(ctx, svc, *patch.Category, true)
		if err != nil {
			return service.Task{}, err
		}
		moved, err := svc.Tasks.Insert(dest, &tasks.Task{Title: upd.Title, Status: upd.Status}).Context(ctx).Do()
		if err != nil {
			return service.Task{}, wrapError(err)
		}
		if err := svc.Tasks.Delete(listID, tID).Context(ctx).Do(); err != nil {
			return service.Task{}, wrapError(err)
		}
		return toTask(dest, *patch.Category, moved), nil
	}

	t, err := svc.Tasks.Patch(listID, tID, upd).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return toTask(listID, cat, t), nil
}

func (c *Client) categoryOf(ctx context.Context, svc *tasks.Service, listID string) (service.Category, error) {
	for _, cat := range service.Categories {
		id, err := c.listID(ctx, svc, cat, false)
		if err != nil {
			return "", err
		}
		if id == listID {
			return cat, nil
		}
	}
	return "", fmt.Errorf("%w: task list %s is not a category list", service.ErrNotFound, listID)
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	listID, tID, err := splitID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := svc.Tasks.Delete(listID, tID).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// wrapError maps API errors to service errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: token expired or revoked (run: todo login)", service.ErrNotLoggedIn)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: token expired or revoked (run: todo login)", service.ErrNotLoggedIn)
		case http.StatusForbidden:
			return service.ErrUnauthorized
		case http.StatusNotFound:
			return service.ErrNotFound
		}
	}
	return err
}
