package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/cs-ops-service/internal/config"
	"github.com/spec-kit/cs-ops-service/internal/domain"
)

// HTTPClient talks to the tracker's REST API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient builds a client from configuration. Returns a Disabled client
// when no base URL is set.
func NewHTTPClient(cfg config.TrackerConfig) Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Disabled{}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

func (c *HTTPClient) Configured() bool { return true }

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	CustomerRef string `json:"customer_ref"`
	CycleRef    string `json:"cycle_ref"`
}

type createTaskResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (c *HTTPClient) CreateTask(ctx context.Context, action domain.Action, cycle *domain.OngoingCycle, customer *domain.Customer) (*TaskRef, error) {
	payload := createTaskRequest{
		Title:       action.Name,
		Description: fmt.Sprintf("Acao de ciclo ongoing (%s) para %s", cycle.Segment, customer.Name),
		DueDate:     action.DueDate.Format(time.RFC3339),
		CustomerRef: customer.ID,
		CycleRef:    cycle.ID,
	}
	var resp createTaskResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", payload, &resp); err != nil {
		return nil, err
	}
	return &TaskRef{ID: resp.ID, URL: resp.URL}, nil
}

func (c *HTTPClient) UpdateTaskStatus(ctx context.Context, taskID, externalStatus string) error {
	payload := map[string]string{"status": externalStatus}
	return c.do(ctx, http.MethodPatch, "/tasks/"+taskID, payload, nil)
}

type fetchTaskResponse struct {
	ID     string `json:"id"`
	Status struct {
		Status string `json:"status"`
	} `json:"status"`
}

func (c *HTTPClient) FetchTask(ctx context.Context, taskID string) (*Task, error) {
	var resp fetchTaskResponse
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &resp); err != nil {
		return nil, err
	}
	return &Task{ID: resp.ID, Status: resp.Status.Status}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tracker %s %s: status %d: %s", method, path, resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
