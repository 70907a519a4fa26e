package service

import (
	"errors"
	"strings"
)

// FieldError 字段级校验错误（可由调用方修正）
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError 在事务开启前返回，不作为服务错误记录日志
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ServiceError 对调用方不透明；原始错误只进日志
type ServiceError struct {
	Op  string
	Err error
}

const ServiceErrorMessage = "something went wrong, please try again later"

func (e *ServiceError) Error() string { return ServiceErrorMessage }

func (e *ServiceError) Unwrap() error { return e.Err }

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	errDeleteNoRows = errors.New("failed delete data")
	errLockMiss     = errors.New("failed locked data")
)

func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
