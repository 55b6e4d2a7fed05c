package storage

import (
	"fmt"

	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// NewProvider 根据媒体后端配置创建对象存储
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.MediaBackend {
	case "", "local":
		provider, err = NewLocalStorage(cfg.LocalStoragePath)
	case "minio":
		provider, err = NewMinioStorage(MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKey,
			SecretAccessKey: cfg.MinioSecretKey,
			BucketName:      cfg.MinioBucket,
			UseSSL:          cfg.MinioUseSSL,
		})
	case "webdav":
		provider, err = NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.WebDAVURL,
			Username: cfg.WebDAVUsername,
			Password: cfg.WebDAVPassword,
			RootPath: cfg.WebDAVRootPath,
			Timeout:  cfg.MediaTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.MediaBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.MediaBackend, err)
	}

	logger.Named("storage").Info("Storage provider initialized", zap.String("provider", provider.Name()))
	return provider, nil
}
