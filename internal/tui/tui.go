package tui

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/nullix/taskdeck/internal/api"
	"github.com/nullix/taskdeck/internal/model"
	"github.com/nullix/taskdeck/internal/session"
	"github.com/nullix/taskdeck/internal/tasks"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewTasks   = "tasks"
	viewAuth    = "auth"
	viewForm    = "form"
	viewSearch  = "search"
	viewConfirm = "confirm"
)

const (
	screenLogin    = "login"
	screenRegister = "register"
	screenTasks    = "tasks"
)

type UI struct {
	gui     *gocui.Gui
	session session.Session
	client  *api.Client
	engine  *tasks.Engine

	screen     string
	selected   int
	status     string
	loading    bool
	submitting bool

	authForm     *formState
	form         *formState
	formEditor   *formEditor
	searchActive bool
	confirmTask  *model.Task
}

func Run(sess session.Session, client *api.Client, engine *tasks.Engine) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := &UI{
		gui:     gui,
		session: sess,
		client:  client,
		engine:  engine,
	}
	ui.formEditor = &formEditor{ui: ui}

	// Route guard: an unauthenticated start lands on login.
	if sess.IsAuthed() {
		ui.screen = screenTasks
		ui.fetchTasks()
	} else {
		ui.showLogin("")
	}

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quitFromList); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.refresh); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'g', gocui.ModNone, u.clearFilters); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.openCreateForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'x', gocui.ModNone, u.toggleStatus); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.askDelete); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'f', gocui.ModNone, u.cycleFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 's', gocui.ModNone, u.cycleSort); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'z', gocui.ModNone, u.cyclePageSize); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'o', gocui.ModNone, u.logout); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '/', gocui.ModNone, u.startSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowRight, gocui.ModNone, u.nextPage); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowLeft, gocui.ModNone, u.prevPage); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'n', gocui.ModNone, u.nextPage); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'p', gocui.ModNone, u.prevPage); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewAuth, gocui.KeyEnter, gocui.ModNone, u.submitAuth); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewAuth, gocui.KeyTab, gocui.ModNone, u.nextAuthField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewAuth, gocui.KeyBacktab, gocui.ModNone, u.prevAuthField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewAuth, gocui.KeyArrowDown, gocui.ModNone, u.nextAuthField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewAuth, gocui.KeyArrowUp, gocui.ModNone, u.prevAuthField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewAuth, gocui.KeyCtrlT, gocui.ModNone, u.switchAuthScreen); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitCreateForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelCreateForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEnter, gocui.ModNone, u.submitSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEsc, gocui.ModNone, u.cancelSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewConfirm, gocui.KeyEnter, gocui.ModNone, u.confirmDelete); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewConfirm, 'y', gocui.ModNone, u.confirmDelete); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewConfirm, gocui.KeyEsc, gocui.ModNone, u.cancelDelete); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewConfirm, 'n', gocui.ModNone, u.cancelDelete); err != nil {
		return err
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	u.renderHeader(headerView)

	footerY1 := maxY - 2
	if footerY1 < 1 {
		footerY1 = 1
	}
	footerY0 := footerY1 - 2
	if footerY0 < 1 {
		footerY0 = 1
	}
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	if u.screen == screenTasks {
		if err := u.layoutTasks(gui, maxX, bodyTop, bodyBottom); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewTasks)
		if err := u.layoutAuth(gui); err != nil {
			return err
		}
	}

	if u.screen == screenTasks {
		_ = gui.DeleteView(viewAuth)
	}

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.form != nil {
		if err := u.showCreateForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.confirmTask != nil {
		if err := u.showConfirm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewConfirm)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.currentViewName())
	}

	gui.Cursor = u.screen != screenTasks || u.form != nil || u.searchActive

	return nil
}

func (u *UI) currentViewName() string {
	switch {
	case u.confirmTask != nil:
		return viewConfirm
	case u.searchActive:
		return viewSearch
	case u.form != nil:
		return viewForm
	case u.screen == screenTasks:
		return viewTasks
	default:
		return viewAuth
	}
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	if u.screen != screenTasks {
		fmt.Fprint(view, "TASKDECK")
		return
	}

	username := "-"
	if user, ok := u.session.User(); ok {
		username = user.Username
	}

	state := fmt.Sprintf("共 %d 项", u.engine.Data().Total)
	if u.busy() {
		state = "同步中…"
	}
	fmt.Fprintf(view, "TASKDECK | %s | %s | %s", username, state, u.querySummary())
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	switch u.screen {
	case screenTasks:
		fmt.Fprintln(view, "a add | x toggle | d delete | / search | f filter | s sort | z page size")
		fmt.Fprintln(view, "n/p or arrows page | r reload | g clear | o logout | q quit")
	case screenRegister:
		fmt.Fprintln(view, "enter submit | tab next field | ctrl+t back to login | ctrl+c quit")
	default:
		fmt.Fprintln(view, "enter submit | tab next field | ctrl+t register | ctrl+c quit")
	}
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) inputActive() bool {
	return u.screen != screenTasks || u.form != nil || u.searchActive || u.confirmTask != nil
}

// busy reports whether a network operation is in flight: an open fetch cycle
// on the engine, or a submit still running. Busy handlers are dropped so the
// query cannot change under an outstanding request.
func (u *UI) busy() bool {
	return u.loading || u.engine.Loading()
}

// runAsync runs op off the event loop and marshals done back through
// gui.Update. op must not touch UI or engine state; all state changes belong
// in done, which runs on the loop. With no gui (tests) everything runs
// inline.
func (u *UI) runAsync(op func() error, done func(error)) {
	if u.gui == nil {
		done(op())
		return
	}
	go func() {
		err := op()
		u.gui.Update(func(*gocui.Gui) error {
			done(err)
			return nil
		})
	}()
}

func (u *UI) focusView(name string) {
	if u.gui != nil {
		_, _ = u.gui.SetCurrentView(name)
	}
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func (u *UI) quitFromList(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return gocui.ErrQuit
}
