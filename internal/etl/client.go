// Package etl ingests tracking data from the upstream wearable-provider API
// into the analytics store: fetch, transform into typed records, and upsert,
// optionally archiving raw payloads to the object store.
package etl

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

	"github.com/trackpulse/trackpulse/internal/config"
)

const (
	defaultEventTypes  = "ima_acceleration,ima_jump,football_movement_analysis"
	defaultEffortTypes = "velocity,acceleration"
)

// Client fetches raw entities from the provider API.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	client   *http.Client
}

func NewClient(cfg config.ETLConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    strings.TrimSpace(cfg.APIToken),
		pageSize: cfg.PageSize,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) FetchActivities(ctx context.Context) ([]map[string]any, []byte, error) {
	params := url.Values{}
	if c.pageSize > 0 {
		params.Set("page_size", strconv.Itoa(c.pageSize))
	}
	return c.fetchList(ctx, "/activities", params)
}

func (c *Client) FetchAthletes(ctx context.Context, activityID int64) ([]map[string]any, []byte, error) {
	return c.fetchList(ctx, fmt.Sprintf("/activities/%d/athletes", activityID), nil)
}

func (c *Client) FetchPeriods(ctx context.Context, activityID int64) ([]map[string]any, []byte, error) {
	return c.fetchList(ctx, fmt.Sprintf("/activities/%d/periods", activityID), nil)
}

func (c *Client) FetchEvents(ctx context.Context, activityID, athleteID int64) ([]map[string]any, []byte, error) {
	params := url.Values{"event_types": {defaultEventTypes}}
	return c.fetchList(ctx, fmt.Sprintf("/activities/%d/athletes/%d/events", activityID, athleteID), params)
}

func (c *Client) FetchEfforts(ctx context.Context, activityID, athleteID int64) ([]map[string]any, []byte, error) {
	params := url.Values{"effort_types": {defaultEffortTypes}}
	return c.fetchList(ctx, fmt.Sprintf("/activities/%d/athletes/%d/efforts", activityID, athleteID), params)
}

// fetchList returns both the decoded records and the raw body so callers can
// archive the untouched payload.
func (c *Client) fetchList(ctx context.Context, endpoint string, params url.Values) ([]map[string]any, []byte, error) {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return records, body, nil
}
