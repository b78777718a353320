package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"facewatch/internal/core"
)

// EventsResponse is the body of GET /v1/events
type EventsResponse struct {
	Events []*core.Event `json:"events"`
}

// StatusClient queries a running agent's local API
type StatusClient interface {
	// Status retrieves the engine snapshot
	Status(ctx context.Context) (*Snapshot, error)
	// Events retrieves the most recent journaled events, newest first
	Events(ctx context.Context, limit int, kind core.EventKind) ([]*core.Event, error)
}

// HTTPStatusClient implements StatusClient using HTTP
type HTTPStatusClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPStatusClient creates a new HTTP client for the agent API
func NewHTTPStatusClient(baseURL, token string, logger *slog.Logger) *HTTPStatusClient {
	return &HTTPStatusClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With("component", "status-client"),
	}
}

// Status retrieves the engine snapshot
func (c *HTTPStatusClient) Status(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.get(ctx, "/v1/status", nil, &snap); err != nil {
		return nil, err
	}

	c.logger.Debug("status received",
		"state", snap.State,
		"score", snap.Score,
		"session_locked", snap.SessionLocked,
	)
	return &snap, nil
}

// Events retrieves journaled events; kind filters when non-empty
func (c *HTTPStatusClient) Events(ctx context.Context, limit int, kind core.EventKind) ([]*core.Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if kind != "" {
		q.Set("kind", string(kind))
	}

	var resp EventsResponse
	if err := c.get(ctx, "/v1/events", q, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *HTTPStatusClient) get(ctx context.Context, path string, query url.Values, out any) error {
	// Build URL
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", "url", u.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("unauthorized: invalid or missing token")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Ensure HTTPStatusClient implements StatusClient
var _ StatusClient = (*HTTPStatusClient)(nil)
