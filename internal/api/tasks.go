package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nullix/taskdeck/internal/model"
	"github.com/nullix/taskdeck/internal/query"
)

// ListResult is the list payload resolved into one of two shapes: a
// server-paginated page, or a flat task array from a backend that predates
// pagination. Exactly one of the fields is set; neither means the payload
// was unrecognizable.
type ListResult struct {
	Page *model.TaskPage
	Flat []model.Task
}

type UpsertTaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context, q query.Query) (ListResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/tasks"+listQuery(q), nil, &raw); err != nil {
		return ListResult{}, err
	}
	return resolveList(raw), nil
}

func (c *Client) CreateTask(ctx context.Context, title, description string) (model.Task, error) {
	payload := struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}{Title: title, Description: description}

	var task model.Task
	err := c.do(ctx, http.MethodPost, "/tasks", payload, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, input UpsertTaskInput) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), input, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	// The delete acknowledgment body is arbitrary and discarded.
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
}

// listQuery builds the request parameters, leaving out values the server
// treats as defaults: status=all, a blank keyword, non-positive paging.
func listQuery(q query.Query) string {
	values := url.Values{}

	if q.Status != "" && q.Status != query.StatusAll {
		values.Set("status", q.Status)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if keyword := strings.TrimSpace(q.Keyword); keyword != "" {
		values.Set("q", keyword)
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}

	encoded := values.Encode()
	if encoded == "" {
		return ""
	}
	return "?" + encoded
}

func resolveList(raw json.RawMessage) ListResult {
	var page model.TaskPage
	if err := json.Unmarshal(raw, &page); err == nil && hasPageShape(raw) {
		return ListResult{Page: &page}
	}

	var flat []model.Task
	if err := json.Unmarshal(raw, &flat); err == nil && flat != nil {
		return ListResult{Flat: flat}
	}

	return ListResult{}
}

// hasPageShape reports whether the payload carries an items array and a
// numeric total, the markers of a server-paginated response.
func hasPageShape(raw json.RawMessage) bool {
	var probe struct {
		Items *[]model.Task `json:"items"`
		Total *int          `json:"total"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Items != nil && probe.Total != nil
}
