package media

import (
	"fmt"

	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/internal/worker"
	"github.com/anoixa/photogram/storage"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// New 根据配置创建媒体存储，所有调用都经过 pool 调度
// cloudinary 后端不使用 objects，其余后端必须提供
func New(cfg *config.Config, pool *worker.Pool, objects storage.Provider) (Store, error) {
	keys := generator.NewKeyGenerator(cfg.MediaRootFolder)

	var backend Store
	switch cfg.MediaBackend {
	case "cloudinary":
		cld, err := NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, keys)
		if err != nil {
			return nil, err
		}
		backend = cld
	default:
		if objects == nil {
			return nil, fmt.Errorf("media backend %q requires an object storage provider", cfg.MediaBackend)
		}
		backend = NewObjectStore(objects, imaging.NewVipsRenderer(), keys, cfg.BaseURL())
	}

	logger.Named("media").Info("Media store initialized",
		zap.String("backend", backend.Name()),
		zap.Duration("timeout", cfg.MediaTimeout),
		zap.Int("retries", cfg.MediaRetries))

	return NewDispatcher(backend, pool, DispatchConfig{
		Timeout: cfg.MediaTimeout,
		Retries: cfg.MediaRetries,
	}), nil
}
