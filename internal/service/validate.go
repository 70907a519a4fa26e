package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CreateUserInput struct {
	Name       string `json:"name"        validate:"required"`
	Email      string `json:"email"       validate:"required,email"`
	AccessType string `json:"access_type" validate:"required,oneof=admin user"`
}

// UpdateUserInput access_type 原样透传，不做枚举校验
type UpdateUserInput struct {
	Name       string `json:"name"        validate:"required,min=2"`
	Email      string `json:"email"       validate:"required,email"`
	AccessType string `json:"access_type"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password"         validate:"required,min=6"`
	RePassword      string `json:"re_password"      validate:"required,eqfield=Password"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误里的字段名用 json tag
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

// fieldErrors 把 validator 的错误转成 FieldError 列表
func fieldErrors(err error) ([]FieldError, error) {
	if err == nil {
		return nil, nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil, err
	}
	out := make([]FieldError, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: validationMessage(fe.Tag(), fe.Param()),
		})
	}
	return out, nil
}

func hasField(fields []FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "eqfield":
		return "does not match"
	case "unique":
		return "has already been taken"
	case "current_password":
		return "current password is incorrect"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
