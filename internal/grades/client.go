package grades

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"SchoolNotify/internal/config"
)

// Grade is a graded assignment as served by the main school-management
// API.
type Grade struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"studentId"`
	Subject        string    `json:"subject"`
	AssignmentType string    `json:"assignmentType"`
	AssignmentName string    `json:"assignmentName"`
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"maxScore"`
	GradedAt       time.Time `json:"gradedAt"`
}

// Student is the subset of the student record this service needs.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is a thin REST client for the grades/students API, consumed as a
// black box.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.GradesAPIURL,
		token:   cfg.GradesAPIToken,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("grades API is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach grades API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("grades API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RecentGrades returns a student's grades recorded since the given time.
func (c *Client) RecentGrades(ctx context.Context, studentID string, since time.Time) ([]Grade, error) {
	path := fmt.Sprintf("/api/students/%s/grades?since=%s",
		url.PathEscape(studentID), url.QueryEscape(since.Format(time.RFC3339)))
	var out []Grade
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Student fetches one student record.
func (c *Client) Student(ctx context.Context, id string) (*Student, error) {
	var out Student
	if err := c.get(ctx, "/api/students/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
