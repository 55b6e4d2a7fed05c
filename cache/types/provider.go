package types

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 检查错误是否为缓存未命中
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Provider 缓存提供者接口
type Provider interface {
	// Set 写入缓存，value 以 JSON 形式保存
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 读取缓存到 dest，未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Incr 对计数器加一并返回新值，计数器首次创建时设置过期时间
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Close() error
	Name() string
}
