package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/civiceye/civiceye/internal/model"
)

// IssueFilter narrows an issue list query. Zero values mean "all".
type IssueFilter struct {
	Status   string
	Category string
	Search   string
}

// NewIssue is the payload for reporting an issue. ImagePath, when
// non-empty, is a local file uploaded as the multipart "image" field.
type NewIssue struct {
	Title       string
	Description string
	Category    string
	Latitude    float64
	Longitude   float64
	ImagePath   string
}

// Issues lists issues visible to the current user. The backend scopes
// the result by role (admins see all, workers their assignments,
// citizens their own reports).
func (c *Client) Issues(ctx context.Context, filter IssueFilter) ([]model.Issue, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	return getList[model.Issue](c, ctx, "/issues/", query)
}

// Issue fetches a single issue by id.
func (c *Client) Issue(ctx context.Context, id int64) (model.Issue, error) {
	var issue model.Issue
	err := c.get(ctx, fmt.Sprintf("/issues/%d/", id), nil, &issue)
	return issue, err
}

// CreateIssue reports a new issue via multipart form data.
func (c *Client) CreateIssue(ctx context.Context, req NewIssue) (model.Issue, error) {
	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"latitude":    strconv.FormatFloat(req.Latitude, 'f', 6, 64),
		"longitude":   strconv.FormatFloat(req.Longitude, 'f', 6, 64),
	}

	var issue model.Issue
	err := c.postMultipart(ctx, "/issues/", fields, req.ImagePath, &issue)
	return issue, err
}

// UpdateIssue patches arbitrary issue fields and returns the server's
// authoritative copy.
func (c *Client) UpdateIssue(ctx context.Context, id int64, patch map[string]interface{}) (model.Issue, error) {
	var issue model.Issue
	err := c.patch(ctx, fmt.Sprintf("/issues/%d/", id), patch, &issue)
	return issue, err
}

// UpdateIssueStatus moves an issue to a new status.
func (c *Client) UpdateIssueStatus(ctx context.Context, id int64, status string) (model.Issue, error) {
	return c.UpdateIssue(ctx, id, map[string]interface{}{"status": status})
}

// DeleteIssue removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/issues/%d/", id))
}

// NearbyIssues lists issues within radius kilometers of a coordinate.
func (c *Client) NearbyIssues(ctx context.Context, latitude, longitude, radius float64) ([]model.Issue, error) {
	query := url.Values{
		"latitude":  {strconv.FormatFloat(latitude, 'f', 6, 64)},
		"longitude": {strconv.FormatFloat(longitude, 'f', 6, 64)},
		"radius":    {strconv.FormatFloat(radius, 'f', -1, 64)},
	}
	return getList[model.Issue](c, ctx, "/issues/nearby/", query)
}

// RequestResolve files a worker-initiated resolve request for an issue.
func (c *Client) RequestResolve(ctx context.Context, id int64) error {
	return c.post(ctx, fmt.Sprintf("/issues/%d/request-resolve/", id), nil, nil)
}

// AssignWorker assigns (or, with workerID 0, unassigns) a worker via
// the dedicated action endpoint, falling back to a plain PATCH when
// the deployment predates that endpoint.
func (c *Client) AssignWorker(ctx context.Context, id int64, workerID int64) (model.Issue, error) {
	var body map[string]interface{}
	if workerID != 0 {
		body = map[string]interface{}{"worker_id": workerID}
	} else {
		body = map[string]interface{}{"worker_id": nil}
	}

	var issue model.Issue
	err := c.post(ctx, fmt.Sprintf("/issues/%d/assign_worker/", id), body, &issue)
	if err == nil {
		return issue, nil
	}
	if !isEndpointMissing(err) {
		return model.Issue{}, err
	}

	patch := map[string]interface{}{"assigned_to": nil}
	if workerID != 0 {
		patch["assigned_to"] = workerID
	}
	return c.UpdateIssue(ctx, id, patch)
}

// DashboardStats fetches the aggregate issue counters.
func (c *Client) DashboardStats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := c.get(ctx, "/dashboard/stats/", nil, &stats)
	return stats, err
}
