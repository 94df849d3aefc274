package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/nullix/taskdeck/internal/api"
	"github.com/nullix/taskdeck/internal/model"
	"github.com/nullix/taskdeck/internal/query"
)

// ErrEmptyTitle rejects a create before it reaches the network.
var ErrEmptyTitle = errors.New("title is required")

// API is the slice of the gateway the engine drives.
type API interface {
	ListTasks(ctx context.Context, q query.Query) (api.ListResult, error)
	CreateTask(ctx context.Context, title, description string) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, input api.UpsertTaskInput) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Engine owns the query state and the current page of tasks. Every query
// change is written to the mirror as a canonical query string; the engine is
// constructed from the parsed mirror so a view round-trips across restarts.
//
// The engine is not safe for concurrent use. Operations are split into a
// network half (List, SubmitCreate, SubmitToggle, SubmitDelete) that touches
// no engine state and may run on another goroutine, and a state half
// (BeginFetch, EndFetch, FinishCreate, FinishDelete, the setters) that must
// stay on the caller's event loop.
type Engine struct {
	api     API
	query   query.Query
	data    model.TaskPage
	loading bool
	mirror  func(string)
}

func NewEngine(client API, q query.Query) *Engine {
	return &Engine{api: client, query: q.Normalize()}
}

// SetMirror installs the query-string sink. It fires once immediately so the
// mirror starts in agreement with the state.
func (e *Engine) SetMirror(sink func(string)) {
	e.mirror = sink
	e.syncMirror()
}

func (e *Engine) Query() query.Query   { return e.query }
func (e *Engine) Data() model.TaskPage { return e.data }

// Loading reports whether a fetch cycle is open, from BeginFetch until its
// EndFetch.
func (e *Engine) Loading() bool { return e.loading }

func (e *Engine) TotalPages() int {
	pageSize := e.data.PageSize
	if pageSize == 0 {
		pageSize = e.query.PageSize
	}
	return query.TotalPages(e.data.Total, pageSize)
}

// SetQuery replaces the whole state, the inbound half of the mirror sync.
func (e *Engine) SetQuery(q query.Query) {
	e.query = q.Normalize()
	e.syncMirror()
}

func (e *Engine) SetStatus(status string) {
	e.query.Status = status
	e.resetPage()
}

func (e *Engine) SetKeyword(keyword string) {
	e.query.Keyword = keyword
	e.resetPage()
}

func (e *Engine) SetSort(sort string) {
	e.query.Sort = sort
	e.resetPage()
}

func (e *Engine) SetPageSize(size int) {
	e.query.PageSize = size
	e.resetPage()
}

func (e *Engine) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	if tp := e.TotalPages(); page > tp {
		page = tp
	}
	e.query.Page = page
	e.query = e.query.Normalize()
	e.syncMirror()
}

// resetPage normalizes after a filter change; any change that can invalidate
// the current offset starts over at page one.
func (e *Engine) resetPage() {
	e.query.Page = 1
	e.query = e.query.Normalize()
	e.syncMirror()
}

// BeginFetch opens a fetch cycle and returns the query snapshot the request
// must use. EndFetch closes the cycle.
func (e *Engine) BeginFetch() query.Query {
	e.loading = true
	return e.query
}

// List is the network half of a fetch. It reads nothing but the API handle,
// so it may run off the event loop while the loop keeps rendering.
func (e *Engine) List(ctx context.Context, q query.Query) (api.ListResult, error) {
	return e.api.ListTasks(ctx, q)
}

// EndFetch closes the cycle opened by BeginFetch. On success it installs the
// page fetched for q; the server may report fewer pages than were asked for,
// in which case the page number is pulled back without forcing another fetch.
func (e *Engine) EndFetch(q query.Query, result api.ListResult, err error) error {
	e.loading = false
	if err != nil {
		return err
	}

	e.data = resolvePage(result, q)

	if tp := query.TotalPages(e.data.Total, e.data.PageSize); e.query.Page > tp {
		e.query.Page = tp
		e.syncMirror()
	}
	return nil
}

// Fetch runs a full fetch cycle synchronously. In-flight requests are never
// cancelled; when responses cross, the last one to arrive wins.
func (e *Engine) Fetch(ctx context.Context) error {
	q := e.BeginFetch()
	result, err := e.List(ctx, q)
	return e.EndFetch(q, result, err)
}

// SubmitCreate is the network half of a create; it touches no engine state.
func (e *Engine) SubmitCreate(ctx context.Context, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	_, err := e.api.CreateTask(ctx, title, description)
	return err
}

// FinishCreate lands the view on page one so the new task is visible.
func (e *Engine) FinishCreate() {
	e.query.Page = 1
	e.syncMirror()
}

func (e *Engine) Create(ctx context.Context, title, description string) error {
	if err := e.SubmitCreate(ctx, title, description); err != nil {
		return err
	}
	e.FinishCreate()
	return e.Fetch(ctx)
}

// SubmitToggle flips pending/completed through a full update carrying the
// task's current title and description. Network only; safe off the loop.
func (e *Engine) SubmitToggle(ctx context.Context, task model.Task) error {
	description := task.Description
	status := model.ToggledStatus(task.Status)

	input := api.UpsertTaskInput{
		Title:       task.Title,
		Description: &description,
		Status:      &status,
	}
	_, err := e.api.UpdateTask(ctx, task.ID, input)
	return err
}

func (e *Engine) Toggle(ctx context.Context, task model.Task) error {
	if err := e.SubmitToggle(ctx, task); err != nil {
		return err
	}
	return e.Fetch(ctx)
}

// SubmitDelete is the network half of a delete; the caller has already
// confirmed.
func (e *Engine) SubmitDelete(ctx context.Context, task model.Task) error {
	return e.api.DeleteTask(ctx, task.ID)
}

// FinishDelete lands on the last page that can still exist after the removal.
func (e *Engine) FinishDelete() {
	afterTotal := e.data.Total - 1
	if afterTotal < 0 {
		afterTotal = 0
	}
	pageSize := e.data.PageSize
	if pageSize == 0 {
		pageSize = e.query.PageSize
	}
	if tp := query.TotalPages(afterTotal, pageSize); e.query.Page > tp {
		e.query.Page = tp
	}
	e.syncMirror()
}

func (e *Engine) Delete(ctx context.Context, task model.Task) error {
	if err := e.SubmitDelete(ctx, task); err != nil {
		return err
	}
	e.FinishDelete()
	return e.Fetch(ctx)
}

func (e *Engine) syncMirror() {
	if e.mirror != nil {
		e.mirror(query.String(e.query))
	}
}

// resolvePage turns a ListResult into the page the view shows, resolved
// against the query the request was made with. A flat result gets
// client-side compatibility pagination: status filter only, then slice.
func resolvePage(result api.ListResult, q query.Query) model.TaskPage {
	if result.Page != nil {
		return *result.Page
	}

	if result.Flat != nil {
		filtered := result.Flat
		if q.Status != query.StatusAll {
			filtered = make([]model.Task, 0, len(result.Flat))
			for _, task := range result.Flat {
				if task.Status == q.Status {
					filtered = append(filtered, task)
				}
			}
		}

		start := (q.Page - 1) * q.PageSize
		end := start + q.PageSize
		if start > len(filtered) {
			start = len(filtered)
		}
		if end > len(filtered) {
			end = len(filtered)
		}

		return model.TaskPage{
			Items:    filtered[start:end],
			Total:    len(filtered),
			Page:     q.Page,
			PageSize: q.PageSize,
		}
	}

	return model.TaskPage{
		Items:    []model.Task{},
		Total:    0,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}
