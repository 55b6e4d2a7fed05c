package ristretto

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/anoixa/photogram/cache/types"
	"github.com/dgraph-io/ristretto"
)

// Config Ristretto配置
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultConfig 进程内缓存的默认配置
func DefaultConfig() Config {
	return Config{
		NumCounters: 1e5,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

// Ristretto 进程内缓存实现
type Ristretto struct {
	client *ristretto.Cache
	// 计数器的读改写需要串行
	mu sync.Mutex
}

var _ types.Provider = (*Ristretto)(nil)

// NewRistretto 创建新的Ristretto实例
func NewRistretto(config Config) (*Ristretto, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{client: cache}, nil
}

// Set 设置缓存项
func (r *Ristretto) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if r.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		// 等待值被实际设置
		r.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (r *Ristretto) Get(_ context.Context, key string, dest interface{}) error {
	value, found := r.client.Get(key)
	if !found {
		return types.ErrCacheMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return types.ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return types.ErrCacheMiss
	}
	return nil
}

// Delete 删除缓存项
func (r *Ristretto) Delete(_ context.Context, key string) error {
	r.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (r *Ristretto) Exists(_ context.Context, key string) (bool, error) {
	_, found := r.client.Get(key)
	return found, nil
}

// Incr 计数器加一，保留首次写入时的过期时间
func (r *Ristretto) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ttl := window
	var count int64
	if value, found := r.client.Get(key); found {
		if n, ok := value.(int64); ok {
			count = n
			if remaining, ok := r.client.GetTTL(key); ok && remaining > 0 {
				ttl = remaining
			}
		}
	}
	count++

	if r.client.SetWithTTL(key, count, 1, ttl) {
		r.client.Wait()
	}
	return count, nil
}

// Close 关闭缓存
func (r *Ristretto) Close() error {
	r.client.Close()
	return nil
}

// Name 提供者名称
func (r *Ristretto) Name() string {
	return "memory"
}
