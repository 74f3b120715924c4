package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
)

// HTTPClient implements DataSource by calling the GymPlan REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) ListPlanWorkouts(ctx context.Context, _ int, f storage.PlanFilter) ([]models.ParsedWorkout, error) {
	params := url.Values{}
	if f.Program != "" {
		params.Set("program", f.Program)
	}
	if f.Week != "" {
		params.Set("week", f.Week)
	}
	if f.Day != "" {
		params.Set("day", f.Day)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	body, err := c.get(ctx, "/api/v1/workouts", params)
	if err != nil {
		return nil, err
	}

	var workouts []models.ParsedWorkout
	if err := json.Unmarshal(body, &workouts); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return workouts, nil
}

func (c *HTTPClient) GetPlanWorkout(ctx context.Context, id string, _ int) (*models.ParsedWorkout, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var workout models.ParsedWorkout
	if err := json.Unmarshal(body, &workout); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &workout, nil
}

func (c *HTTPClient) QueryWorkoutSessions(ctx context.Context, workoutID string, _ int) ([]models.WorkoutSession, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(workoutID)+"/sessions", nil)
	if err != nil {
		return nil, err
	}

	var sessions []models.WorkoutSession
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}

func (c *HTTPClient) QueryImportLogs(ctx context.Context, _ int, limit int) ([]storage.ImportLog, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/api/v1/imports", params)
	if err != nil {
		return nil, err
	}

	var logs []storage.ImportLog
	if err := json.Unmarshal(body, &logs); err != nil {
		return nil, fmt.Errorf("httpclient: decode import logs: %w", err)
	}
	return logs, nil
}
