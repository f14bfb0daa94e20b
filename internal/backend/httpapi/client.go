// Package httpapi implements the service.Remote interface over the task
// service's JSON REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/service"
)

const (
	// HealthPath is the health probe endpoint.
	HealthPath = "/health"

	// TasksPath is the task collection endpoint.
	TasksPath = "/api/tasks"

	// RequestIDHeader carries a per-call id for correlating client and server logs.
	RequestIDHeader = "X-Request-ID"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 4 << 20
)

// Client implements service.Remote against the task service REST API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a client for the base address and timeout in cfg.Settings.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewWithHTTPClient(cfg.Settings.APIURL, &http.Client{}, cfg.Settings.Timeout, logger)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// A zero timeout falls back to config.DefaultTimeout.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: missing host", baseURL)
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		logger:  logging.OrDiscard(logger).With("component", "httpapi"),
	}, nil
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string { return c.baseURL }

// ListTasks returns all tasks in the order the service delivers them.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	status, body, err := c.send(ctx, service.OpListTasks, http.MethodGet, TasksPath, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, service.NewStatusError(service.OpListTasks, status)
	}

	var tasks []service.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, invalidResponse(service.OpListTasks, err)
	}
	return tasks, nil
}

// CreateTask creates a task and returns the service's record.
func (c *Client) CreateTask(ctx context.Context, title string) (service.Task, error) {
	payload := struct {
		Title string `json:"title"`
	}{Title: title}

	status, body, err := c.send(ctx, service.OpCreateTask, http.MethodPost, TasksPath, payload)
	if err != nil {
		return service.Task{}, err
	}
	if !isSuccess(status) {
		return service.Task{}, service.NewStatusError(service.OpCreateTask, status)
	}

	var task service.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return service.Task{}, invalidResponse(service.OpCreateTask, err)
	}
	if task.ID == "" {
		return service.Task{}, invalidResponse(service.OpCreateTask, fmt.Errorf("missing id"))
	}
	return task, nil
}

// UpdateTask sets the completed flag. The response body is not consumed.
func (c *Client) UpdateTask(ctx context.Context, id service.TaskID, completed bool) error {
	payload := struct {
		Completed bool `json:"completed"`
	}{Completed: completed}

	status, _, err := c.send(ctx, service.OpUpdateTask, http.MethodPut, taskPath(id), payload)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return service.NewStatusError(service.OpUpdateTask, status)
	}
	return nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id service.TaskID) error {
	status, _, err := c.send(ctx, service.OpDeleteTask, http.MethodDelete, taskPath(id), nil)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return service.NewStatusError(service.OpDeleteTask, status)
	}
	return nil
}

// ProbeHealth queries the health endpoint. Any non-2xx answer is a
// TransportError, including the 500 the service sends when its database is down.
func (c *Client) ProbeHealth(ctx context.Context) (service.HealthReport, error) {
	status, body, err := c.send(ctx, service.OpProbeHealth, http.MethodGet, HealthPath, nil)
	if err != nil {
		return service.HealthReport{}, err
	}
	if !isSuccess(status) {
		return service.HealthReport{}, service.NewStatusError(service.OpProbeHealth, status)
	}

	var report service.HealthReport
	if err := json.Unmarshal(body, &report); err != nil {
		return service.HealthReport{}, invalidResponse(service.OpProbeHealth, err)
	}
	return report, nil
}

// send issues one request bounded by the client timeout and returns the
// status and body. Only failures to obtain a response are returned as errors.
func (c *Client) send(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &service.TransportError{Op: op, Reason: err.Error(), Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, &service.TransportError{Op: op, Reason: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		te := service.AsTransportError(op, err)
		c.logger.Debug("request failed", "op", op, "request_id", requestID, "error", te.Reason, "elapsed", time.Since(start))
		return 0, nil, te
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		te := service.AsTransportError(op, err)
		c.logger.Debug("reading response failed", "op", op, "request_id", requestID, "error", te.Reason)
		return 0, nil, te
	}

	c.logger.Debug("request done", "op", op, "method", method, "path", path,
		"request_id", requestID, "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp.StatusCode, body, nil
}

func taskPath(id service.TaskID) string {
	return TasksPath + "/" + url.PathEscape(id.String())
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func invalidResponse(op string, err error) *service.TransportError {
	return &service.TransportError{Op: op, Reason: "invalid response: " + err.Error(), Err: err}
}
