// Package automation is the HTTP client for the test automation backend that
// owns the suite catalog, run execution and schedule persistence.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5006"

	StatusScheduled = "scheduled"
)

var ErrScheduleRejected = errors.New("schedule rejected by automation backend")

type Suite struct {
	Path string `json:"path" yaml:"path"`
}

type RunRequest struct {
	TestSuitePath string `json:"testsuite_path"`
	PhoneNumber   string `json:"phone_number"`
}

type ScheduleRequest struct {
	TestSuitePath string `json:"testsuite_path"`
	PhoneNumber   string `json:"phone_number"`
	RunAt         string `json:"run_at"`
	Status        string `json:"status"`
}

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("automation %s http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("automation %s http %d: %s", e.Op, e.Status, body)
}

func (e *StatusError) Is(target error) bool {
	return e.Op == "schedule" && target == ErrScheduleRejected
}

type Client struct {
	http    *http.Client
	baseURL string
}

func New(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListSuites(ctx context.Context) ([]Suite, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/suites", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	raw, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("list suites: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: "suites", Status: status, Body: string(raw)}
	}
	var out []Suite
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode suites: %w", err)
	}
	return out, nil
}

// TriggerRun posts a run request. The response body is not inspected; only
// the HTTP status is returned so callers can log it.
func (c *Client) TriggerRun(ctx context.Context, in RunRequest) (int, error) {
	req, err := c.newJSONRequest(ctx, "/api/run", in)
	if err != nil {
		return 0, err
	}
	_, status, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("trigger run: %w", err)
	}
	return status, nil
}

// CreateSchedule registers a scheduled run. A non-2xx status is returned as a
// *StatusError matching ErrScheduleRejected; transport failures are returned
// wrapped as-is.
func (c *Client) CreateSchedule(ctx context.Context, in ScheduleRequest) error {
	if strings.TrimSpace(in.Status) == "" {
		in.Status = StatusScheduled
	}
	req, err := c.newJSONRequest(ctx, "/api/schedule", in)
	if err != nil {
		return err
	}
	raw, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	if status < 200 || status >= 300 {
		return &StatusError{Op: "schedule", Status: status, Body: string(raw)}
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}
