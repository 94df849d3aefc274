package tui

import (
	"fmt"
	"strings"

	"github.com/jesseduffield/gocui"
)

type formField struct {
	Label string
	Value string
	Mask  bool
}

type formState struct {
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func (f *formState) value(index int) string {
	return strings.TrimSpace(f.fields[index].Value)
}

func (f *formState) next() {
	if f.index < len(f.fields)-1 {
		f.index++
	}
}

func (f *formState) prev() {
	if f.index > 0 {
		f.index--
	}
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	form := ui.activeForm()
	if form == nil || view == nil {
		return false
	}
	field := &form.fields[form.index]

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view, form)
	return true
}

func (u *UI) renderForm(view *gocui.View, form *formState) {
	if form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range form.fields {
		prefix := "  "
		if index == form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, displayValue(field))
	}

	active := form.fields[form.index]
	label := active.Label + ": "
	cursorX := len([]rune(label)) + len([]rune(displayValue(active))) + 2
	view.SetCursor(cursorX, form.index)
}

func displayValue(field formField) string {
	if field.Mask {
		return strings.Repeat("*", len([]rune(field.Value)))
	}
	return field.Value
}
