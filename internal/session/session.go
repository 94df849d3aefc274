package session

import (
	"context"
	"encoding/json"

	"github.com/nullix/taskdeck/internal/model"
	"github.com/nullix/taskdeck/internal/store"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// Session holds the bearer token and the cached user. Nothing validates the
// token client-side; a stale one is discovered by the next API call.
type Session interface {
	Token() string
	User() (model.User, bool)
	IsAuthed() bool
	SetAuth(token string, user model.User) error
	Clear() error
}

// StoreSession persists the session in the local state store.
type StoreSession struct {
	store *store.Store
}

func New(st *store.Store) *StoreSession {
	return &StoreSession{store: st}
}

func (s *StoreSession) Token() string {
	value, ok, err := s.store.Get(context.Background(), keyToken)
	if err != nil || !ok {
		return ""
	}
	return value
}

func (s *StoreSession) User() (model.User, bool) {
	raw, ok, err := s.store.Get(context.Background(), keyUser)
	if err != nil || !ok {
		return model.User{}, false
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// Corrupt cached user reads as absent.
		return model.User{}, false
	}
	return user, true
}

func (s *StoreSession) IsAuthed() bool {
	return s.Token() != ""
}

func (s *StoreSession) SetAuth(token string, user model.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}

	if err := s.store.Set(context.Background(), keyToken, token); err != nil {
		return err
	}
	return s.store.Set(context.Background(), keyUser, string(payload))
}

func (s *StoreSession) Clear() error {
	if err := s.store.Delete(context.Background(), keyToken); err != nil {
		return err
	}
	return s.store.Delete(context.Background(), keyUser)
}
