// Package client is the HTTP client for the patch-run backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/benchtop/benchtop/internal/domain"
)

// ErrReportUnavailable is returned when the aggregate report has not been
// produced yet. Callers treat it as "not available", not as a failure.
var ErrReportUnavailable = errors.New("report not available")

// Client talks to the patch-run backend over its REST surface
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client for the given base URL
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 10 * time.Minute, // single runs are synchronous and slow
		},
		logger: logger,
	}
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTasks fetches all tasks available for selection
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.getJSON(ctx, "/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches the detail for one task
func (c *Client) GetTask(ctx context.Context, id string) (*domain.TaskDetail, error) {
	var detail domain.TaskDetail
	if err := c.getJSON(ctx, "/tasks/"+id, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Run triggers a synchronous single-task run and returns its result with
// the status normalized to the canonical casing
func (c *Client) Run(ctx context.Context, id string) (*domain.RunResult, error) {
	body := map[string]string{"instance_id": id}
	var result domain.RunResult
	if err := c.postJSON(ctx, "/run", body, &result); err != nil {
		return nil, err
	}
	result.Status = domain.NormalizeRunStatus(string(result.Status))
	return &result, nil
}

// LatestResult fetches the latest persisted result for a task. A nil
// result with a nil error means no result exists yet.
func (c *Client) LatestResult(ctx context.Context, id string) (*domain.RunResult, error) {
	var envelope struct {
		Result *domain.RunResult `json:"result"`
	}
	if err := c.getJSON(ctx, "/results/"+id, &envelope); err != nil {
		return nil, err
	}
	if envelope.Result == nil {
		return nil, nil
	}
	envelope.Result.Status = domain.NormalizeRunStatus(string(envelope.Result.Status))
	return envelope.Result, nil
}

// StartBatch begins a batch run. limit 0 and empty ids means "all tasks".
func (c *Client) StartBatch(ctx context.Context, limit int, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	body := map[string]any{"limit": limit, "ids": ids}
	return c.postJSON(ctx, "/batch/start", body, nil)
}

// StopBatch requests a halt of the running batch
func (c *Client) StopBatch(ctx context.Context) error {
	return c.postJSON(ctx, "/batch/stop", map[string]any{}, nil)
}

// BatchStatus polls the batch progress snapshot
func (c *Client) BatchStatus(ctx context.Context) (*domain.BatchStatus, error) {
	var status domain.BatchStatus
	if err := c.getJSON(ctx, "/batch/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Report fetches the aggregate report text. ErrReportUnavailable is
// returned when the backend has no report yet.
func (c *Client) Report(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/batch/report", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrReportUnavailable
	}

	var envelope struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decoding report: %w", err)
	}
	if envelope.Content == nil {
		return "", ErrReportUnavailable
	}
	return *envelope.Content, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Failed-call bodies are not interpreted, only drained
		io.Copy(io.Discard, resp.Body)
		c.logger.Warn("backend call failed",
			"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return fmt.Errorf("%s %s: backend returned %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}
