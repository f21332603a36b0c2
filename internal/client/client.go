// Package client implements the gateway surface over the REST API, for
// running against a remote server instead of a local database. The bearer
// token carries the user identity, so the userID argument every method takes
// is ignored here; it exists to match the gateway interfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/calistro/calistro/internal/models"
)

// Client calls the REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client targeting the given base URL, authenticating every
// request with the bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, int, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("client: encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("client: read body: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// checkStatus maps the API's error statuses back to the sentinel errors the
// rest of the code matches on.
func checkStatus(path string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return models.ErrNotFound
	case status == http.StatusBadRequest:
		var resp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &resp) == nil && resp.Error != "" {
			return fmt.Errorf("%w: %s", models.ErrValidation, resp.Error)
		}
		return fmt.Errorf("%w: %s", models.ErrValidation, body)
	default:
		return fmt.Errorf("client: %s returned %d: %s", path, status, body)
	}
}

func (c *Client) ListRoutines(ctx context.Context, _ string) ([]models.RoutineRow, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/v1/routines", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("/api/v1/routines", status, body); err != nil {
		return nil, err
	}
	var rows []models.RoutineRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("client: decode routines: %w", err)
	}
	return rows, nil
}

func (c *Client) GetRoutine(ctx context.Context, _ string, routineID int64) (*models.RoutineDetail, error) {
	path := "/api/v1/routines/" + strconv.FormatInt(routineID, 10)
	body, status, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(path, status, body); err != nil {
		return nil, err
	}
	var detail models.RoutineDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("client: decode routine: %w", err)
	}
	return &detail, nil
}

func (c *Client) SaveRoutine(ctx context.Context, _ string, in models.RoutineInput) (int64, error) {
	method, path := http.MethodPost, "/api/v1/routines"
	if in.ID != 0 {
		method = http.MethodPut
		path += "/" + strconv.FormatInt(in.ID, 10)
	}
	body, status, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return 0, err
	}
	if err := checkStatus(path, status, body); err != nil {
		return 0, err
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("client: decode save response: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) DeleteRoutine(ctx context.Context, _ string, routineID int64) error {
	path := "/api/v1/routines/" + strconv.FormatInt(routineID, 10)
	body, status, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(path, status, body)
}

func (c *Client) SaveSession(ctx context.Context, _ string, in models.SessionInput) (int64, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, in)
	if err != nil {
		return 0, err
	}
	if err := checkStatus("/api/v1/sessions", status, body); err != nil {
		return 0, err
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("client: decode session response: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) ExerciseNames(ctx context.Context, _ string) ([]string, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/api/v1/history/exercises", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("/api/v1/history/exercises", status, body); err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("client: decode exercise names: %w", err)
	}
	return names, nil
}

func (c *Client) ExerciseStats(ctx context.Context, _ string, name string, since time.Time) (*models.ExerciseStats, error) {
	params := url.Values{}
	params.Set("exercise", name)
	if !since.IsZero() {
		params.Set("since", since.Format(time.RFC3339))
	}
	body, status, err := c.do(ctx, http.MethodGet, "/api/v1/history/stats", params, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("/api/v1/history/stats", status, body); err != nil {
		return nil, err
	}
	var stats models.ExerciseStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("client: decode stats: %w", err)
	}
	return &stats, nil
}

func (c *Client) ExerciseHistory(ctx context.Context, _ string, name string) ([]models.HistoryEntry, error) {
	params := url.Values{}
	params.Set("exercise", name)
	body, status, err := c.do(ctx, http.MethodGet, "/api/v1/history/sessions", params, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("/api/v1/history/sessions", status, body); err != nil {
		return nil, err
	}
	var entries []models.HistoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("client: decode history: %w", err)
	}
	return entries, nil
}

func (c *Client) VolumeProgression(ctx context.Context, _ string, name string) ([]models.VolumePoint, error) {
	params := url.Values{}
	params.Set("exercise", name)
	body, status, err := c.do(ctx, http.MethodGet, "/api/v1/history/volume", params, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("/api/v1/history/volume", status, body); err != nil {
		return nil, err
	}
	var points []models.VolumePoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("client: decode volume: %w", err)
	}
	return points, nil
}
