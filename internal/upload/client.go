package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/gymplan/internal/ingest"
)

// maxAttempts bounds retries of a single upload.
const maxAttempts = 3

// ErrRejected marks an upload the server refused for good, e.g. a document
// with no workouts in it. Retrying will not help.
var ErrRejected = errors.New("upload rejected")

// Result is the server's answer to an accepted upload.
type Result struct {
	Message string        `json:"message"`
	Result  ingest.Result `json:"result"`
}

// Client sends plan documents to the GymPlan server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the GymPlan server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// Health checks that the server is reachable and its database is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, body)
	}
	return nil
}

// UploadPlan POSTs one document as multipart form field "plan".
// Retries up to 3 times with exponential backoff on network errors and
// server errors. Other failures are returned at once; documents the server
// cannot use are wrapped in ErrRejected.
func (c *Client) UploadPlan(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		result, retry, err := c.send(ctx, filepath.Base(path), data)
		if err == nil {
			return result, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// send makes one upload attempt and reports whether a failure is worth retrying.
func (c *Client) send(ctx context.Context, name string, data []byte) (*Result, bool, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("plan", name)
	if err != nil {
		return nil, false, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, false, err
	}
	if err := mw.Close(); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/workouts/upload", &buf)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, false, fmt.Errorf("decoding upload response: %w", err)
		}
		return &result, false, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, body)
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusUnsupportedMediaType:
		return nil, false, fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, body)
	default:
		return nil, false, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, body)
	}
}
