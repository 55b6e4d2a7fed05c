package utils

import (
	"context"
	"errors"
	"syscall"
)

// IsClientDisconnect 错误是否由客户端提前断开导致，这类错误不需要按服务端故障处理
func IsClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
