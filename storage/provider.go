package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// Provider 对象存储提供者接口
// 键为以 "/" 分隔的相对路径，如 photogram/user_1/original_images/<uuid>.webp
type Provider interface {
	// Save 写入对象，已存在时覆盖
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get 读取对象，不存在时返回 ErrObjectNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除对象，对象不存在不视为错误
	Delete(ctx context.Context, key string) error

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}
