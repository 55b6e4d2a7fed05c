package di

import (
	"context"
	"fmt"

	"github.com/anoixa/photogram/cache"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/internal/auth"
	"github.com/anoixa/photogram/internal/comments"
	"github.com/anoixa/photogram/internal/dashboard"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/internal/media"
	"github.com/anoixa/photogram/internal/pictures"
	"github.com/anoixa/photogram/internal/repositories"
	"github.com/anoixa/photogram/internal/transforms"
	"github.com/anoixa/photogram/internal/users"
	"github.com/anoixa/photogram/internal/worker"
	"github.com/anoixa/photogram/storage"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// Services 业务服务集合
type Services struct {
	Auth       *auth.Service
	Users      *users.Directory
	Pictures   *pictures.Service
	Comments   *comments.Service
	Transforms *transforms.Service
	Dashboard  *dashboard.Service
}

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	cacheProvider   cache.Provider
	objects         storage.Provider
	pool            *worker.Pool
	media           media.Store
	repositories    *repositories.Repositories
	services        *Services
	vipsStarted     bool
	log             *zap.Logger
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
		log:    logger.Named("container"),
	}
}

// Parts 预先构建好的基础设施，测试时跳过外部依赖的初始化
type Parts struct {
	Database *database.Factory
	Cache    cache.Provider
	Objects  storage.Provider
	Media    media.Store
}

// NewContainerFromParts 使用现成的基础设施组装容器
func NewContainerFromParts(cfg *config.Config, parts Parts) (*Container, error) {
	c := NewContainer(cfg)
	c.databaseFactory = parts.Database
	c.cacheProvider = parts.Cache
	c.objects = parts.Objects
	c.media = parts.Media
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// InitDatabase 只初始化数据库，供 migrate 等命令使用
func (c *Container) InitDatabase() error {
	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory
	c.log.Info("Database factory initialized", zap.String("type", c.config.DBType))
	return nil
}

// Init 初始化所有服务
func (c *Container) Init() error {
	c.log.Info("Initializing DI container...")

	if err := c.InitDatabase(); err != nil {
		return err
	}

	cacheProvider, err := cache.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cacheProvider = cacheProvider

	if c.config.MediaBackend != "cloudinary" {
		objects, err := storage.NewProvider(c.config)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.objects = objects
		imaging.Startup()
		c.vipsStarted = true
	}

	c.pool = worker.NewPool(c.config.MediaWorkers, c.config.MediaQueueSize)
	media.RegisterPoolMetrics(c.pool)
	store, err := media.New(c.config, c.pool, c.objects)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}
	c.media = store

	if err := c.initServices(); err != nil {
		return err
	}

	c.log.Info("DI container initialized successfully")
	return nil
}

func (c *Container) initServices() error {
	c.repositories = repositories.NewRepositories(c.databaseFactory.GetProvider())

	jwtService, err := auth.NewJWTService(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt service: %w", err)
	}

	var avatars users.AvatarResolver
	if c.config.GravatarEnabled {
		avatars = users.NewGravatar(c.config.GravatarTimeout)
	}

	repos := c.repositories
	directory := users.NewDirectory(repos.Accounts, c.media, avatars, c.cacheProvider, c.config.CacheUserTTL)
	c.services = &Services{
		Auth:       auth.NewService(jwtService, directory, repos.Blacklist),
		Users:      directory,
		Pictures:   pictures.NewService(repos.Pictures, repos.Transforms, c.media, directory),
		Comments:   comments.NewService(repos.Comments, repos.Pictures),
		Transforms: transforms.NewService(repos.Transforms, repos.Pictures, c.media),
		Dashboard:  dashboard.NewService(repos.Dashboard, c.cacheProvider),
	}
	return nil
}

// Services 获取业务服务
func (c *Container) Services() *Services {
	return c.services
}

// GetRepositories 获取所有仓库
func (c *Container) GetRepositories() *repositories.Repositories {
	return c.repositories
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetCache 获取缓存提供者
func (c *Container) GetCache() cache.Provider {
	return c.cacheProvider
}

// GetObjects 获取对象存储，cloudinary 后端时为 nil
func (c *Container) GetObjects() storage.Provider {
	return c.objects
}

// GetMedia 获取媒体存储
func (c *Container) GetMedia() media.Store {
	return c.media
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// PingDatabase 执行 SELECT 1
func (c *Container) PingDatabase(ctx context.Context) error {
	return c.databaseFactory.Ping(ctx)
}

// Health 返回各组件状态，err 非 nil 时为不可用
func (c *Container) Health(ctx context.Context) map[string]error {
	status := map[string]error{
		"database": c.databaseFactory.Ping(ctx),
	}
	if c.cacheProvider != nil {
		_, err := c.cacheProvider.Exists(ctx, "health")
		status["cache"] = err
	}
	if c.objects != nil {
		status["storage"] = c.objects.Health(ctx)
	}
	return status
}

// Close 关闭所有服务
func (c *Container) Close() error {
	c.log.Info("Closing DI container...")

	if c.pool != nil {
		c.pool.Stop()
	}

	if c.cacheProvider != nil {
		if err := c.cacheProvider.Close(); err != nil {
			c.log.Error("Error closing cache", zap.Error(err))
		}
	}

	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			c.log.Error("Error closing database factory", zap.Error(err))
		}
	}

	if c.vipsStarted {
		imaging.Shutdown()
	}

	c.log.Info("DI container closed")
	return nil
}
