package session

import "github.com/nullix/taskdeck/internal/model"

// Memory is an in-process Session with no durable backing. Tests inject it
// where a real state store would be overkill.
type Memory struct {
	token string
	user  model.User
	has   bool
}

func (m *Memory) Token() string { return m.token }

func (m *Memory) User() (model.User, bool) {
	if !m.has {
		return model.User{}, false
	}
	return m.user, true
}

func (m *Memory) IsAuthed() bool { return m.token != "" }

func (m *Memory) SetAuth(token string, user model.User) error {
	m.token = token
	m.user = user
	m.has = true
	return nil
}

func (m *Memory) Clear() error {
	m.token = ""
	m.user = model.User{}
	m.has = false
	return nil
}
