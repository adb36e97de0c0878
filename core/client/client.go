// Package client wraps the external physics-engine REST API. It is a thin
// protocol-shape layer: every method is one request, transport failures map
// to typed errors, and retry policy stays with the caller.
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

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// JobClient talks to the engine's simulation endpoints
type JobClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a client for the engine at baseURL.
func New(baseURL, authToken string) *JobClient {
	return &JobClient{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the engine endpoint this client targets.
func (c *JobClient) BaseURL() string { return c.baseURL }

// EventsURL returns the push-channel endpoint for a job, rewritten to the
// websocket scheme.
func (c *JobClient) EventsURL(id string) string {
	u := c.baseURL + "/simulations/" + url.PathEscape(id) + "/events"
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	if strings.HasPrefix(u, "http://") {
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// AuthHeader returns the headers a push-channel dial must carry.
func (c *JobClient) AuthHeader() http.Header {
	h := http.Header{}
	if c.authToken != "" {
		h.Set("Authorization", "Bearer "+c.authToken)
	}
	return h
}

// Create submits a new simulation. POST /simulations/create
func (c *JobClient) Create(ctx context.Context, req *models.CreateRequest) (*models.SimulationJob, error) {
	var job models.SimulationJob
	if err := c.do(ctx, http.MethodPost, "/simulations/create", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Get fetches the full job snapshot. GET /simulations/{id}
func (c *JobClient) Get(ctx context.Context, id string) (*models.SimulationJob, error) {
	var job models.SimulationJob
	if err := c.do(ctx, http.MethodGet, "/simulations/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// StatusSnapshot is the lightweight polling payload
type StatusSnapshot struct {
	ID           string           `json:"id"`
	Status       models.JobStatus `json:"status"`
	Progress     float64          `json:"progress"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// GetStatus fetches the lightweight status. GET /simulations/{id}/status
func (c *JobClient) GetStatus(ctx context.Context, id string) (*StatusSnapshot, error) {
	var snap StatusSnapshot
	if err := c.do(ctx, http.MethodGet, "/simulations/"+url.PathEscape(id)+"/status", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetResults fetches the full result payload. GET /simulations/{id}/results
func (c *JobClient) GetResults(ctx context.Context, id string) (*models.SimulationResults, error) {
	var results models.SimulationResults
	if err := c.do(ctx, http.MethodGet, "/simulations/"+url.PathEscape(id)+"/results", nil, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// Delete removes a job from the engine. DELETE /simulations/{id}
func (c *JobClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/simulations/"+url.PathEscape(id), nil, nil)
}

// ListTemplates fetches the engine's parameter presets. GET /simulations/templates
func (c *JobClient) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := c.do(ctx, http.MethodGet, "/simulations/templates", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// ListHistory fetches past jobs. GET /simulations/history?limit&offset&status&kind
func (c *JobClient) ListHistory(ctx context.Context, filters models.HistoryFilters) ([]models.JobSummary, error) {
	q := url.Values{}
	if filters.Limit > 0 {
		q.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Offset > 0 {
		q.Set("offset", strconv.Itoa(filters.Offset))
	}
	if filters.Status != "" {
		q.Set("status", string(filters.Status))
	}
	if filters.Kind != "" {
		q.Set("kind", string(filters.Kind))
	}
	path := "/simulations/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var summaries []models.JobSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// ValidateRemote asks the engine to re-validate a submitted job.
// POST /simulations/{id}/validate
func (c *JobClient) ValidateRemote(ctx context.Context, id string) (*RemoteValidation, error) {
	var v RemoteValidation
	if err := c.do(ctx, http.MethodPost, "/simulations/"+url.PathEscape(id)+"/validate", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// RemoteValidation is the engine's own validation verdict
type RemoteValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Compare requests a side-by-side report for completed jobs.
// POST /simulations/compare
func (c *JobClient) Compare(ctx context.Context, ids []string) (*models.Comparison, error) {
	body := map[string][]string{"ids": ids}
	var cmp models.Comparison
	if err := c.do(ctx, http.MethodPost, "/simulations/compare", body, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

// do executes one request and decodes the response into out (when non-nil).
func (c *JobClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{StatusCode: resp.StatusCode, Message: httpMessage(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: httpMessage(raw), RawBody: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error(), RawBody: string(raw)}
		}
	}
	return nil
}

// httpMessage pulls the error field out of a JSON error body, falling back
// to the raw text.
func httpMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}
