package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/nullix/taskdeck/internal/api"
	"github.com/nullix/taskdeck/internal/model"
	"github.com/nullix/taskdeck/internal/query"
	"github.com/nullix/taskdeck/internal/tasks"
)

const (
	formFieldTitle = iota
	formFieldDescription
)

func (u *UI) layoutTasks(gui *gocui.Gui, maxX, bodyTop, bodyBottom int) error {
	view, err := gui.SetView(viewTasks, 0, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Tasks"
	}
	view.Frame = true
	view.Highlight = u.confirmTask == nil && u.form == nil && !u.searchActive
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	u.renderTasks(view)
	return nil
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	items := u.engine.Data().Items
	if len(items) == 0 {
		if u.busy() {
			fmt.Fprint(view, " 加载中…")
		} else {
			fmt.Fprint(view, " 暂无任务，先创建一个吧。")
		}
		return
	}

	for i, task := range items {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task))
	}
	view.SetCursor(0, min(u.selected, len(items)-1))
}

func formatTaskSummary(task model.Task) string {
	marker := "[ ]"
	if task.Status == model.StatusCompleted {
		marker = "[x]"
	}
	line := fmt.Sprintf("%s #%d %s", marker, task.ID, task.Title)
	if desc := strings.TrimSpace(task.Description); desc != "" {
		line += " | " + desc
	}
	return line
}

func (u *UI) querySummary() string {
	q := u.engine.Query()
	data := u.engine.Data()
	return fmt.Sprintf("第 %d/%d 页 · 本页 %d 条 | %s", q.Page, u.engine.TotalPages(), len(data.Items), query.String(q))
}

func (u *UI) selectedTask() *model.Task {
	items := u.engine.Data().Items
	if u.selected >= 0 && u.selected < len(items) {
		task := items[u.selected]
		return &task
	}
	return nil
}

func (u *UI) clampSelection() {
	if count := len(u.engine.Data().Items); u.selected >= count {
		u.selected = max(count-1, 0)
	}
}

// fetchTasks reloads the list for the current query. Only the network call
// leaves the event loop; the result is installed back on it in the done
// callback, so engine state is never touched from the fetch goroutine. It
// never cancels an in-flight request; a slow earlier response may briefly
// win over a faster later one.
func (u *UI) fetchTasks() {
	q := u.engine.BeginFetch()
	var result api.ListResult
	u.runAsync(func() error {
		var err error
		result, err = u.engine.List(context.Background(), q)
		return err
	}, func(err error) {
		if err := u.engine.EndFetch(q, result, err); err != nil {
			u.handleTaskError(err, "加载任务失败")
			return
		}
		u.status = ""
		u.clampSelection()
	})
}

// handleTaskError surfaces the message; a rejected session additionally
// clears stored credentials and falls back to the login screen.
func (u *UI) handleTaskError(err error, fallback string) {
	if api.IsUnauthorized(err) {
		_ = u.session.Clear()
		u.showLogin("登录已过期，请重新登录")
		return
	}
	u.status = operationMessage(err, fallback)
}

func operationMessage(err error, fallback string) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < len(u.engine.Data().Items)-1 {
		u.selected++
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
	}
	return nil
}

func (u *UI) refresh(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	u.status = ""
	u.fetchTasks()
	return nil
}

func (u *UI) clearFilters(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	u.engine.SetQuery(query.Default())
	u.fetchTasks()
	return nil
}

func (u *UI) nextPage(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	q := u.engine.Query()
	if q.Page >= u.engine.TotalPages() {
		return nil
	}
	u.engine.SetPage(q.Page + 1)
	u.fetchTasks()
	return nil
}

func (u *UI) prevPage(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	q := u.engine.Query()
	if q.Page <= 1 {
		return nil
	}
	u.engine.SetPage(q.Page - 1)
	u.fetchTasks()
	return nil
}

func (u *UI) cycleFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	switch u.engine.Query().Status {
	case query.StatusAll:
		u.engine.SetStatus(model.StatusPending)
	case model.StatusPending:
		u.engine.SetStatus(model.StatusCompleted)
	default:
		u.engine.SetStatus(query.StatusAll)
	}
	u.fetchTasks()
	return nil
}

func (u *UI) cycleSort(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	switch u.engine.Query().Sort {
	case query.SortCreatedDesc:
		u.engine.SetSort(query.SortCreatedAsc)
	case query.SortCreatedAsc:
		u.engine.SetSort(query.SortStatus)
	default:
		u.engine.SetSort(query.SortCreatedDesc)
	}
	u.fetchTasks()
	return nil
}

func (u *UI) cyclePageSize(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	current := u.engine.Query().PageSize
	next := query.PageSizes[0]
	for i, size := range query.PageSizes {
		if size == current {
			next = query.PageSizes[(i+1)%len(query.PageSizes)]
			break
		}
	}
	u.engine.SetPageSize(next)
	u.fetchTasks()
	return nil
}

func (u *UI) toggleStatus(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.busy() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}

	task := *selected
	u.loading = true
	u.runAsync(func() error {
		return u.engine.SubmitToggle(context.Background(), task)
	}, func(err error) {
		u.loading = false
		if err != nil {
			u.handleTaskError(err, "更新失败")
			return
		}
		u.fetchTasks()
	})
	return nil
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewSearch, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "搜索标题 / 描述"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.engine.Query().Keyword)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	keyword := strings.TrimSpace(view.Buffer())
	u.searchActive = false
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewSearch)
		_, _ = gui.SetCurrentView(viewTasks)
	}
	u.engine.SetKeyword(keyword)
	u.fetchTasks()
	return nil
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	if gui != nil {
		_ = gui.DeleteView(viewSearch)
		_, _ = gui.SetCurrentView(viewTasks)
	}
	return nil
}

func (u *UI) openCreateForm(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{fields: []formField{
		{Label: "任务标题（必填）"},
		{Label: "任务描述（可选）"},
	}}
	return nil
}

func (u *UI) showCreateForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := len(u.form.fields) + 1
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewForm, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "新任务"
	view.Wrap = true
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view, u.form)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitCreateForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	title := u.form.value(formFieldTitle)
	description := u.form.value(formFieldDescription)

	u.loading = true
	u.runAsync(func() error {
		return u.engine.SubmitCreate(context.Background(), title, description)
	}, func(err error) {
		u.loading = false
		if errors.Is(err, tasks.ErrEmptyTitle) {
			u.status = "任务标题不能为空"
			return
		}
		if err != nil {
			u.handleTaskError(err, "创建失败")
			return
		}
		u.engine.FinishCreate()
		u.form = nil
		u.status = ""
		u.selected = 0
		if gui != nil {
			_ = gui.DeleteView(viewForm)
			_, _ = gui.SetCurrentView(viewTasks)
		}
		u.fetchTasks()
	})
	return nil
}

func (u *UI) cancelCreateForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	if gui != nil {
		_ = gui.DeleteView(viewForm)
		_, _ = gui.SetCurrentView(viewTasks)
	}
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	u.form.next()
	u.renderForm(view, u.form)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	u.form.prev()
	u.renderForm(view, u.form)
	return nil
}

func (u *UI) askDelete(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.confirmTask = u.selectedTask()
	return nil
}

func (u *UI) showConfirm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewConfirm, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "确认删除"
	view.Wrap = true
	view.Clear()
	fmt.Fprintf(view, "删除任务「%s」？ (enter/y 确认, esc/n 取消)", u.confirmTask.Title)
	_, _ = gui.SetCurrentView(viewConfirm)
	return nil
}

func (u *UI) confirmDelete(gui *gocui.Gui, _ *gocui.View) error {
	if u.confirmTask == nil {
		return nil
	}
	task := *u.confirmTask
	u.confirmTask = nil
	if gui != nil {
		_ = gui.DeleteView(viewConfirm)
		_, _ = gui.SetCurrentView(viewTasks)
	}

	u.loading = true
	u.runAsync(func() error {
		return u.engine.SubmitDelete(context.Background(), task)
	}, func(err error) {
		u.loading = false
		if err != nil {
			u.handleTaskError(err, "删除失败")
			return
		}
		u.engine.FinishDelete()
		u.fetchTasks()
	})
	return nil
}

func (u *UI) cancelDelete(gui *gocui.Gui, _ *gocui.View) error {
	u.confirmTask = nil
	if gui != nil {
		_ = gui.DeleteView(viewConfirm)
		_, _ = gui.SetCurrentView(viewTasks)
	}
	return nil
}
