package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError 参数校验失败，在任何写操作之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError 资源不存在
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " 不存在"
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// IsValidation 是否为校验错误
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound 是否为资源不存在错误
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// notFoundOr 把 gorm.ErrRecordNotFound 转为 NotFoundError，其他错误原样返回
func notFoundOr(err error, resource, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError(resource, message)
	}
	return err
}
