package api

import (
	"context"
	"net/http"

	"github.com/nullix/taskdeck/internal/model"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type RegisterResult struct {
	User model.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", credentials{Username: username, Password: password}, &result)
	return result, err
}

func (c *Client) Register(ctx context.Context, username, password string) (RegisterResult, error) {
	var result RegisterResult
	err := c.do(ctx, http.MethodPost, "/auth/register", credentials{Username: username, Password: password}, &result)
	return result, err
}
