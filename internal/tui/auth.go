package tui

import (
	"context"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/nullix/taskdeck/internal/api"
	"github.com/nullix/taskdeck/internal/auth"
)

const (
	authFieldUsername = iota
	authFieldPassword
	authFieldConfirm
)

const registerRedirectDelay = 800 * time.Millisecond

func (u *UI) activeForm() *formState {
	if u.form != nil {
		return u.form
	}
	if u.screen == screenLogin || u.screen == screenRegister {
		return u.authForm
	}
	return nil
}

func (u *UI) showLogin(message string) {
	u.screen = screenLogin
	u.status = message
	u.submitting = false
	u.authForm = &formState{fields: []formField{
		{Label: "用户名"},
		{Label: "密码", Mask: true},
	}}
	u.focusView(viewAuth)
}

func (u *UI) showRegister() {
	u.screen = screenRegister
	u.status = ""
	u.submitting = false
	u.authForm = &formState{fields: []formField{
		{Label: "用户名"},
		{Label: "密码", Mask: true},
		{Label: "确认密码", Mask: true},
	}}
	u.focusView(viewAuth)
}

func (u *UI) switchAuthScreen(_ *gocui.Gui, _ *gocui.View) error {
	if u.submitting {
		return nil
	}
	if u.screen == screenLogin {
		u.showRegister()
	} else {
		u.showLogin("")
	}
	return nil
}

func (u *UI) layoutAuth(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/2)
	height := len(u.authForm.fields) + 1
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewAuth, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if u.screen == screenRegister {
		view.Title = "注册"
	} else {
		view.Title = "登录"
	}
	view.Wrap = true
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view, u.authForm)
	return nil
}

func (u *UI) nextAuthField(_ *gocui.Gui, view *gocui.View) error {
	if u.authForm == nil {
		return nil
	}
	u.authForm.next()
	u.renderForm(view, u.authForm)
	return nil
}

func (u *UI) prevAuthField(_ *gocui.Gui, view *gocui.View) error {
	if u.authForm == nil {
		return nil
	}
	u.authForm.prev()
	u.renderForm(view, u.authForm)
	return nil
}

func (u *UI) submitAuth(_ *gocui.Gui, _ *gocui.View) error {
	if u.submitting || u.authForm == nil {
		return nil
	}
	if u.screen == screenRegister {
		return u.submitRegister()
	}
	return u.submitLogin()
}

func (u *UI) submitLogin() error {
	form := auth.LoginForm{
		Username: u.authForm.value(authFieldUsername),
		Password: u.authForm.fields[authFieldPassword].Value,
	}
	if message := form.Validate(); message != "" {
		u.status = message
		return nil
	}

	u.submitting = true
	u.status = "登录中..."
	var result api.LoginResult
	u.runAsync(func() error {
		var err error
		result, err = u.client.Login(context.Background(), form.Username, form.Password)
		return err
	}, func(err error) {
		u.submitting = false
		if err != nil {
			u.status = auth.LoginErrorMessage(err)
			return
		}
		if err := u.session.SetAuth(result.Token, result.User); err != nil {
			u.status = err.Error()
			return
		}
		u.status = ""
		u.showTasks()
	})
	return nil
}

func (u *UI) submitRegister() error {
	form := auth.RegisterForm{
		Username: u.authForm.value(authFieldUsername),
		Password: u.authForm.fields[authFieldPassword].Value,
		Confirm:  u.authForm.fields[authFieldConfirm].Value,
	}
	if message := form.Validate(); message != "" {
		u.status = message
		return nil
	}

	u.submitting = true
	u.status = "注册中..."
	u.runAsync(func() error {
		_, err := u.client.Register(context.Background(), form.Username, form.Password)
		return err
	}, func(err error) {
		u.submitting = false
		if err != nil {
			u.status = auth.RegisterErrorMessage(err)
			return
		}
		// No auto-login: show the notice, then drop back to the login form.
		u.status = "注册成功！即将跳转到登录页…"
		u.redirectToLogin()
	})
	return nil
}

func (u *UI) redirectToLogin() {
	if u.gui == nil {
		u.showLogin("")
		return
	}
	time.AfterFunc(registerRedirectDelay, func() {
		u.gui.Update(func(*gocui.Gui) error {
			if u.screen == screenRegister {
				u.showLogin("")
			}
			return nil
		})
	})
}

// showTasks is the guarded entry to the task screen.
func (u *UI) showTasks() {
	if !u.session.IsAuthed() {
		u.showLogin("")
		return
	}
	u.screen = screenTasks
	u.authForm = nil
	u.selected = 0
	u.focusView(viewTasks)
	u.fetchTasks()
}

func (u *UI) logout(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if err := u.session.Clear(); err != nil {
		u.status = err.Error()
		return nil
	}
	u.showLogin("")
	return nil
}
