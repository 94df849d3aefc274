package auth

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginForm is validated before any network call; a failing form never
// reaches the server.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"min=6"`
}

type RegisterForm struct {
	Username string `validate:"required"`
	Password string `validate:"min=6"`
	Confirm  string `validate:"eqfield=Password"`
}

const (
	msgLoginInvalid    = "请输入用户名，密码至少 6 位"
	msgRegisterInvalid = "用户名不能为空，密码至少 6 位"
	msgConfirmMismatch = "两次密码不一致"
)

// Validate returns a localized message for the first problem, or "" when the
// form may be submitted. The username is trimmed in place.
func (f *LoginForm) Validate() string {
	f.Username = strings.TrimSpace(f.Username)
	if err := validate.Struct(f); err != nil {
		return msgLoginInvalid
	}
	return ""
}

func (f *RegisterForm) Validate() string {
	f.Username = strings.TrimSpace(f.Username)
	err := validate.Struct(f)
	if err == nil {
		return ""
	}

	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range errs {
			if fieldErr.Field() == "Confirm" {
				return msgConfirmMismatch
			}
		}
	}
	return msgRegisterInvalid
}
