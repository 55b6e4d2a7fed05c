package core

import (
	"net/http"
	"time"

	"github.com/anoixa/photogram/api/middleware"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/internal/di"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 创建 gin 引擎并注册全部路由，返回的函数用于停止后台清理
func NewRouter(container *di.Container) (*gin.Engine, func()) {
	cfg := container.GetConfig()
	router := gin.New()

	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	_ = router.SetTrustedProxies(nil)

	// 限制上传文件大小
	router.MaxMultipartMemory = int64(cfg.UploadMaxSizeMB) << 20

	concurrencyLimiter := middleware.NewConcurrencyLimiter("global", int64(cfg.ConcurrencyLimitRequest))
	router.Use(concurrencyLimiter.Middleware())
	uploadLimiter := middleware.NewConcurrencyLimiter("upload", int64(cfg.UploadConcurrency))
	router.Use(middleware.Metrics())

	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
	}

	RegisterRoutes(router, &RouterDependencies{
		Services:        container.Services(),
		CacheProvider:   container.GetCache(),
		Objects:         container.GetObjects(),
		Health:          NewHealthHandler(container),
		AuthRateLimiter: authRateLimiter,
		APIRateLimiter:  apiRateLimiter,
		UploadLimiter:   uploadLimiter,
		Config:          cfg,
	})

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(container *di.Container) (*http.Server, func()) {
	cfg := container.GetConfig()
	router, clean := NewRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
