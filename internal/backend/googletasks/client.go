// Package googletasks implements the service.Remote interface on the default
// list of the Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks fetched per page.
	PageSize = 100

	// TasksScope is the OAuth scope for Google Tasks.
	TasksScope = "https://www.googleapis.com/auth/tasks"

	// Task status values used by the API.
	StatusCompleted   = "completed"
	StatusNeedsAction = "needsAction"

	// statusDisconnected is reported for a subsystem that failed its check.
	statusDisconnected = "disconnected"
)

// ErrNotLoggedIn is returned by New when no token has been stored.
var ErrNotLoggedIn = errors.New("not logged in (run: taskdeck login)")

// Client implements service.Remote using the Google Tasks API.
type Client struct {
	svc     *tasks.Service
	tokens  oauth2.TokenSource
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a client from oauth_client.json and token.json in cfg.Dir.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, TasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}

	if !cfg.HasToken() {
		return nil, ErrNotLoggedIn
	}
	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.TokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.TokenFile, err)
	}

	// The token source refreshes and caches the access token.
	tokenSource := oauthConfig.TokenSource(ctx, &token)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return newClient(svc, tokenSource, cfg.Settings.Timeout, logger), nil
}

// NewWithHTTPClient creates a client against endpoint with a custom HTTP client
// (for testing). tokens may be nil, in which case the cache is always reported
// connected.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string, tokens oauth2.TokenSource, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newClient(svc, tokens, timeout, logger), nil
}

func newClient(svc *tasks.Service, tokens oauth2.TokenSource, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Client{
		svc:     svc,
		tokens:  tokens,
		timeout: timeout,
		logger:  logging.OrDiscard(logger).With("component", "googletasks"),
	}
}

// ListTasks returns every task of the default list, completed ones included,
// in API order.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := []service.Task{}
	err := c.svc.Tasks.List(DefaultListID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, task := range resp.Items {
				result = append(result, toTask(task))
			}
			return nil
		})
	if err != nil {
		return nil, c.wrapError(service.OpListTasks, err)
	}

	c.logger.Debug("tasks listed", "count", len(result))
	return result, nil
}

// CreateTask inserts a task into the default list.
func (c *Client) CreateTask(ctx context.Context, title string) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(DefaultListID, &tasks.Task{Title: title}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, c.wrapError(service.OpCreateTask, err)
	}
	return toTask(created), nil
}

// UpdateTask marks a task completed or back to needsAction.
func (c *Client) UpdateTask(ctx context.Context, id service.TaskID, completed bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	patch := &tasks.Task{Status: StatusNeedsAction}
	if completed {
		patch.Status = StatusCompleted
	} else {
		// Reopening requires clearing the completion timestamp.
		patch.NullFields = []string{"Completed"}
	}

	if _, err := c.svc.Tasks.Patch(DefaultListID, id.String(), patch).Context(ctx).Do(); err != nil {
		return c.wrapError(service.OpUpdateTask, err)
	}
	return nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id service.TaskID) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(DefaultListID, id.String()).Context(ctx).Do(); err != nil {
		return c.wrapError(service.OpDeleteTask, err)
	}
	return nil
}

// ProbeHealth reports the default list as the persistent store and the OAuth
// token cache as the cache. An HTTP error from Google marks the store down;
// only a failure to reach Google at all is returned as an error.
func (c *Client) ProbeHealth(ctx context.Context) (service.HealthReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := service.HealthReport{
		Status:   "healthy",
		Database: service.StatusConnected,
		Cache:    service.StatusConnected,
	}

	if c.tokens != nil {
		if _, err := c.tokens.Token(); err != nil {
			c.logger.Debug("token check failed", "error", err)
			report.Cache = statusDisconnected
		}
	}

	_, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if !errors.As(err, &apiErr) {
			return service.HealthReport{}, c.wrapError(service.OpProbeHealth, err)
		}
		c.logger.Debug("default list check failed", "status", apiErr.Code)
		report.Database = statusDisconnected
	}

	if !report.DatabaseConnected() || !report.CacheConnected() {
		report.Status = "unhealthy"
	}
	return report, nil
}

func toTask(t *tasks.Task) service.Task {
	return service.Task{
		ID:        service.TaskID(t.Id),
		Title:     t.Title,
		Completed: t.Status == StatusCompleted,
	}
}

// wrapError converts API errors into transport errors with user-facing reasons.
func (c *Client) wrapError(op string, err error) error {
	c.logger.Debug("request failed", "op", op, "error", err)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		te := service.NewStatusError(op, apiErr.Code)
		te.Err = err
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			te.Reason = "token expired or revoked (run: taskdeck login)"
		}
		return te
	}
	return service.AsTransportError(op, err)
}
