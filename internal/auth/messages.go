package auth

import (
	"errors"

	"github.com/nullix/taskdeck/internal/api"
)

var loginMessages = map[string]string{
	"INVALID_CREDENTIALS": "用户名或密码错误",
	"INVALID_JSON":        "请求格式不正确",
	"UNAUTHORIZED":        "登录已过期，请重新登录",
}

var registerMessages = map[string]string{
	"USERNAME_EXISTS":  "用户名已存在，请换一个",
	"INVALID_USERNAME": "用户名不能为空",
	"INVALID_PASSWORD": "密码至少 6 位",
}

// LoginErrorMessage maps a login failure to its localized text. Unknown
// codes fall back to the server message, then to a generic line.
func LoginErrorMessage(err error) string {
	return mapError(err, loginMessages, "登录失败，请重试")
}

func RegisterErrorMessage(err error) string {
	return mapError(err, registerMessages, "注册失败，请重试")
}

func mapError(err error, table map[string]string, fallback string) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if msg, ok := table[apiErr.Code]; ok {
			return msg
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallback
}
