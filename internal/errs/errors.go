// Package errs 定义业务错误分类，由 API 层统一映射为 HTTP 状态码
package errs

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrValidation         = errors.New("validation error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConflict           = errors.New("conflict")
)

// Error 携带分类和面向客户端消息的业务错误
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is 使 errors.Is(err, ErrXxx) 对分类生效
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New 创建指定分类的错误
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf 创建指定分类的格式化错误
func Newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 为底层错误附加分类
func Wrap(kind error, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Message 返回可以展示给客户端的消息
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
