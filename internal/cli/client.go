package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Octobot/internal/metrics"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TaskResponse — задача из API.
type TaskResponse struct {
	Name        string  `json:"name"`
	Registered  bool    `json:"registered"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	Retries     int64   `json:"retries"`
	AverageTime float64 `json:"average_time"`
	Samples     int     `json:"samples"`
}

// NotificationsResponse — состояние очереди уведомлений.
type NotificationsResponse struct {
	Enabled           bool `json:"enabled"`
	Pending           int  `json:"pending"`
	Capacity          int  `json:"capacity"`
	RemainingCapacity int  `json:"remaining_capacity"`
}

// WorkersResponse — состояние пула воркеров.
type WorkersResponse struct {
	Total  int            `json:"total"`
	States map[string]int `json:"states"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API интроспекции.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Introspect возвращает снимок метрик.
func (c *Client) Introspect() (*metrics.Snapshot, error) {
	resp, err := c.do("/api/v1/introspect")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &snap, nil
}

// ListTasks возвращает известные задачи.
func (c *Client) ListTasks() ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", &tasks)
	return tasks, err
}

// GetTask возвращает метрики одной задачи.
func (c *Client) GetTask(name string) (*TaskResponse, error) {
	var t TaskResponse
	err := c.get("/api/v1/tasks/"+name, &t)
	return &t, err
}

// Notifications возвращает состояние очереди уведомлений.
func (c *Client) Notifications() (*NotificationsResponse, error) {
	var n NotificationsResponse
	err := c.get("/api/v1/notifications", &n)
	return &n, err
}

// Workers возвращает состояние пула воркеров.
func (c *Client) Workers() (*WorkersResponse, error) {
	var w WorkersResponse
	err := c.get("/api/v1/workers", &w)
	return &w, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	resp, err := c.do(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(dr.Data, result)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) do(path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
