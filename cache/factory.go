package cache

import (
	"fmt"

	"github.com/anoixa/photogram/cache/redis"
	"github.com/anoixa/photogram/cache/ristretto"
	"github.com/anoixa/photogram/cache/types"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// Provider 缓存提供者
type Provider = types.Provider

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = types.ErrCacheMiss

// IsCacheMiss 检查错误是否为缓存未命中
func IsCacheMiss(err error) bool {
	return types.IsCacheMiss(err)
}

// NewProvider 根据配置创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "", "memory":
		p, err := ristretto.NewRistretto(ristretto.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		logger.Named("cache").Info("Using in-memory cache")
		return p, nil
	case "redis":
		p, err := redis.NewRedis(cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Named("cache").Info("Using redis cache", zap.String("addr", cfg.CacheRedisAddr))
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
