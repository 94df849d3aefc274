package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nullix/taskdeck/internal/api"
	"github.com/nullix/taskdeck/internal/model"
	"github.com/nullix/taskdeck/internal/query"
)

type stubAPI struct {
	results []api.ListResult
	listErr error

	queries []query.Query
	created []api.UpsertTaskInput
	updated map[int64]api.UpsertTaskInput
	deleted []int64
}

func (s *stubAPI) ListTasks(_ context.Context, q query.Query) (api.ListResult, error) {
	s.queries = append(s.queries, q)
	if s.listErr != nil {
		return api.ListResult{}, s.listErr
	}
	if len(s.results) == 0 {
		return api.ListResult{}, nil
	}
	result := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return result, nil
}

func (s *stubAPI) CreateTask(_ context.Context, title, description string) (model.Task, error) {
	s.created = append(s.created, api.UpsertTaskInput{Title: title, Description: &description})
	return model.Task{ID: int64(len(s.created)), Title: title, Description: description, Status: model.StatusPending}, nil
}

func (s *stubAPI) UpdateTask(_ context.Context, id int64, input api.UpsertTaskInput) (model.Task, error) {
	if s.updated == nil {
		s.updated = make(map[int64]api.UpsertTaskInput)
	}
	s.updated[id] = input
	return model.Task{ID: id, Title: input.Title}, nil
}

func (s *stubAPI) DeleteTask(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func pageResult(total, page, pageSize int, items ...model.Task) api.ListResult {
	if items == nil {
		items = []model.Task{}
	}
	return api.ListResult{Page: &model.TaskPage{Items: items, Total: total, Page: page, PageSize: pageSize}}
}

func someTasks(n int, status string) []model.Task {
	tasks := make([]model.Task, 0, n)
	for i := 1; i <= n; i++ {
		tasks = append(tasks, model.Task{ID: int64(i), Title: fmt.Sprintf("Task %d", i), Status: status})
	}
	return tasks
}

func TestFetchTrustsPaginatedResult(t *testing.T) {
	stub := &stubAPI{results: []api.ListResult{pageResult(11, 1, 10, someTasks(10, model.StatusPending)...)}}
	engine := NewEngine(stub, query.Default())

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data := engine.Data()
	if data.Total != 11 || len(data.Items) != 10 {
		t.Fatalf("unexpected page: total=%d items=%d", data.Total, len(data.Items))
	}
	if len(data.Items) > data.PageSize {
		t.Fatalf("items exceed page size: %d > %d", len(data.Items), data.PageSize)
	}
}

func TestFetchFallbackFiltersByStatusOnly(t *testing.T) {
	flat := append(someTasks(8, model.StatusPending), someTasks(4, model.StatusCompleted)...)
	stub := &stubAPI{results: []api.ListResult{{Flat: flat}}}

	q := query.Default()
	q.Status = model.StatusCompleted
	q.Keyword = "ignored in fallback"
	engine := NewEngine(stub, q)

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data := engine.Data()
	if data.Total != 4 {
		t.Fatalf("expected 4 filtered tasks, got total=%d", data.Total)
	}
	if len(data.Items) != 4 {
		t.Fatalf("expected 4 items on page 1, got %d", len(data.Items))
	}
	for _, task := range data.Items {
		if task.Status != model.StatusCompleted {
			t.Fatalf("fallback leaked status %q", task.Status)
		}
	}
}

func TestFetchFallbackSlicesRequestedPage(t *testing.T) {
	stub := &stubAPI{results: []api.ListResult{{Flat: someTasks(12, model.StatusPending)}}}

	q := query.Default()
	q.Page = 2
	engine := NewEngine(stub, q)

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data := engine.Data()
	if data.Total != 12 || data.Page != 2 {
		t.Fatalf("unexpected page meta: %+v", data)
	}
	if len(data.Items) != 2 {
		t.Fatalf("expected 2 items on page 2, got %d", len(data.Items))
	}
	if data.Items[0].ID != 11 || data.Items[1].ID != 12 {
		t.Fatalf("wrong slice: %+v", data.Items)
	}
}

func TestFetchUnrecognizedShapeYieldsEmptyPage(t *testing.T) {
	stub := &stubAPI{results: []api.ListResult{{}}}

	q := query.Default()
	q.Page = 1
	q.PageSize = 20
	engine := NewEngine(stub, q)

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data := engine.Data()
	if len(data.Items) != 0 || data.Total != 0 {
		t.Fatalf("expected empty page, got %+v", data)
	}
	if data.Page != 1 || data.PageSize != 20 {
		t.Fatalf("expected requested paging echoed back, got %+v", data)
	}
}

func TestFetchClampsOverflowingPageWithoutRefetch(t *testing.T) {
	stub := &stubAPI{results: []api.ListResult{pageResult(11, 5, 10)}}

	q := query.Default()
	q.Page = 5
	engine := NewEngine(stub, q)

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if got := engine.Query().Page; got != 2 {
		t.Fatalf("expected page clamped to 2, got %d", got)
	}
	if len(stub.queries) != 1 {
		t.Fatalf("clamp must not force another fetch, saw %d fetches", len(stub.queries))
	}
}

func TestCreateResetsToPageOneAndRefetches(t *testing.T) {
	// Nine pending tasks, then a tenth after creation; page one holds all ten.
	stub := &stubAPI{results: []api.ListResult{
		pageResult(10, 1, 10, someTasks(10, model.StatusPending)...),
	}}

	q := query.Default()
	q.Page = 3
	engine := NewEngine(stub, q)

	if err := engine.Create(context.Background(), "  Buy milk  ", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(stub.created) != 1 || stub.created[0].Title != "Buy milk" {
		t.Fatalf("expected trimmed title to be sent, got %+v", stub.created)
	}
	if engine.Query().Page != 1 {
		t.Fatalf("expected page reset to 1, got %d", engine.Query().Page)
	}
	if len(stub.queries) != 1 || stub.queries[0].Page != 1 {
		t.Fatalf("expected refetch of page 1, got %+v", stub.queries)
	}
	data := engine.Data()
	if data.Total != 10 || len(data.Items) != 10 {
		t.Fatalf("expected 10 tasks after creation, got total=%d items=%d", data.Total, len(data.Items))
	}
}

func TestCreateRejectsBlankTitleWithoutNetwork(t *testing.T) {
	stub := &stubAPI{}
	engine := NewEngine(stub, query.Default())

	err := engine.Create(context.Background(), "   ", "desc")
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if len(stub.created) != 0 || len(stub.queries) != 0 {
		t.Fatalf("expected no network activity")
	}
}

func TestToggleSendsFullUpdate(t *testing.T) {
	stub := &stubAPI{results: []api.ListResult{pageResult(1, 1, 10, model.Task{ID: 7})}}
	engine := NewEngine(stub, query.Default())

	task := model.Task{ID: 7, Title: "Ship it", Description: "soon", Status: model.StatusPending}
	if err := engine.Toggle(context.Background(), task); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	input, ok := stub.updated[7]
	if !ok {
		t.Fatalf("expected update for task 7")
	}
	if input.Title != "Ship it" {
		t.Fatalf("expected title carried over, got %q", input.Title)
	}
	if input.Description == nil || *input.Description != "soon" {
		t.Fatalf("expected description carried over, got %v", input.Description)
	}
	if input.Status == nil || *input.Status != model.StatusCompleted {
		t.Fatalf("expected status flipped to completed, got %v", input.Status)
	}
	if len(stub.queries) != 1 {
		t.Fatalf("expected a refetch after toggle")
	}
}

func TestDeleteLastItemOnLastPageClampsToPageOne(t *testing.T) {
	// total=11, page_size=10, page=2 holds a single task; deleting it must
	// land the view on page 1.
	stub := &stubAPI{results: []api.ListResult{
		pageResult(11, 2, 10, model.Task{ID: 11, Title: "Straggler", Status: model.StatusPending}),
		pageResult(10, 1, 10, someTasks(10, model.StatusPending)...),
	}}

	q := query.Default()
	q.Page = 2
	engine := NewEngine(stub, q)

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	if err := engine.Delete(context.Background(), model.Task{ID: 11}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(stub.deleted) != 1 || stub.deleted[0] != 11 {
		t.Fatalf("expected task 11 deleted, got %v", stub.deleted)
	}
	if engine.Query().Page != 1 {
		t.Fatalf("expected page clamped to 1, got %d", engine.Query().Page)
	}
	if last := stub.queries[len(stub.queries)-1]; last.Page != 1 {
		t.Fatalf("expected refetch of page 1, got page %d", last.Page)
	}
}

func TestDeleteKeepsPageWhenOthersRemain(t *testing.T) {
	stub := &stubAPI{results: []api.ListResult{
		pageResult(12, 2, 10, someTasks(2, model.StatusPending)...),
		pageResult(11, 2, 10, someTasks(1, model.StatusPending)...),
	}}

	q := query.Default()
	q.Page = 2
	engine := NewEngine(stub, q)

	if err := engine.Fetch(context.Background()); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	if err := engine.Delete(context.Background(), model.Task{ID: 2}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if engine.Query().Page != 2 {
		t.Fatalf("expected to stay on page 2, got %d", engine.Query().Page)
	}
}

func TestFilterChangesResetPageAndSyncMirror(t *testing.T) {
	engine := NewEngine(&stubAPI{}, query.Default())

	var mirrored []string
	engine.SetMirror(func(encoded string) {
		mirrored = append(mirrored, encoded)
	})

	engine.SetPage(1)
	engine.SetStatus(model.StatusPending)

	q := engine.Query()
	if q.Page != 1 || q.Status != model.StatusPending {
		t.Fatalf("unexpected query: %+v", q)
	}

	if len(mirrored) == 0 {
		t.Fatalf("expected mirror writes")
	}
	last := mirrored[len(mirrored)-1]
	if got := query.ParseString(last); got != q {
		t.Fatalf("mirror did not round trip: %q -> %+v, want %+v", last, got, q)
	}
}

func TestFetchErrorLeavesDataUntouched(t *testing.T) {
	stub := &stubAPI{listErr: &api.APIError{Code: "UNAUTHORIZED", Message: "expired"}}
	engine := NewEngine(stub, query.Default())

	err := engine.Fetch(context.Background())
	if !api.IsUnauthorized(err) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if engine.Data().Total != 0 {
		t.Fatalf("expected data untouched on failure")
	}
	if engine.Loading() {
		t.Fatalf("failed fetch must close the loading cycle")
	}
}

func TestStagedFetchKeepsStateUntilEndFetch(t *testing.T) {
	flat := append(someTasks(3, model.StatusPending), someTasks(2, model.StatusCompleted)...)
	stub := &stubAPI{results: []api.ListResult{{Flat: flat}}}
	engine := NewEngine(stub, query.Default())

	q := engine.BeginFetch()
	if !engine.Loading() {
		t.Fatalf("open fetch cycle must report loading")
	}

	// A filter keypress lands while the request is in flight.
	engine.SetStatus(model.StatusCompleted)

	result, err := engine.List(context.Background(), q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if engine.Data().Total != 0 {
		t.Fatalf("result must not land before EndFetch")
	}

	if err := engine.EndFetch(q, result, nil); err != nil {
		t.Fatalf("end fetch: %v", err)
	}
	if engine.Loading() {
		t.Fatalf("EndFetch must close the cycle")
	}
	// The page resolves against the snapshot the request was made with, not
	// the filter that changed mid-flight.
	if got := engine.Data().Total; got != 5 {
		t.Fatalf("total = %d, want 5", got)
	}
	if got := engine.Query().Status; got != model.StatusCompleted {
		t.Fatalf("in-flight filter change lost: %q", got)
	}
}

func TestSubmitHalvesLeaveEngineStateAlone(t *testing.T) {
	stub := &stubAPI{}
	engine := NewEngine(stub, query.Default())

	if err := engine.SubmitCreate(context.Background(), "Buy milk", "2L"); err != nil {
		t.Fatalf("submit create: %v", err)
	}
	if err := engine.SubmitToggle(context.Background(), model.Task{ID: 4, Title: "T", Status: model.StatusPending}); err != nil {
		t.Fatalf("submit toggle: %v", err)
	}
	if err := engine.SubmitDelete(context.Background(), model.Task{ID: 4}); err != nil {
		t.Fatalf("submit delete: %v", err)
	}

	if len(stub.created) != 1 || len(stub.updated) != 1 || len(stub.deleted) != 1 {
		t.Fatalf("expected one call each, got %d/%d/%d", len(stub.created), len(stub.updated), len(stub.deleted))
	}
	if got := engine.Query(); got != query.Default() {
		t.Fatalf("submit halves must not change the query: %+v", got)
	}
	if engine.Data().Total != 0 || len(stub.queries) != 0 {
		t.Fatalf("submit halves must not fetch or install data")
	}
}
