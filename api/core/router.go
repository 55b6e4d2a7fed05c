package core

import (
	"github.com/anoixa/photogram/api/handler/admin"
	"github.com/anoixa/photogram/api/handler/auth"
	"github.com/anoixa/photogram/api/handler/comments"
	"github.com/anoixa/photogram/api/handler/files"
	"github.com/anoixa/photogram/api/handler/pictures"
	"github.com/anoixa/photogram/api/handler/transforms"
	"github.com/anoixa/photogram/api/handler/users"
	"github.com/anoixa/photogram/api/middleware"
	"github.com/anoixa/photogram/cache"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/internal/di"
	"github.com/anoixa/photogram/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Services        *di.Services
	CacheProvider   cache.Provider
	Objects         storage.Provider
	Health          *HealthHandler
	AuthRateLimiter *middleware.IPRateLimiter
	APIRateLimiter  *middleware.IPRateLimiter
	UploadLimiter   *middleware.ConcurrencyLimiter
	Config          *config.Config
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	registerBasicRoutes(router, deps)
	registerAPIRoutes(router, deps)
}

// registerBasicRoutes 注册健康检查、指标和文件访问
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	router.GET("/health", deps.Health.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Objects != nil {
		fileHandler := files.NewHandler(deps.Objects)
		router.GET("/files/*key", fileHandler.ServeFile)
	}
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies) {
	cfg := deps.Config
	svc := deps.Services

	authHandler := auth.NewHandler(svc.Auth)
	userHandler := users.NewHandler(svc.Users, cfg.UploadMaxSizeMB)
	pictureHandler := pictures.NewHandler(svc.Pictures, cfg.UploadMaxSizeMB)
	commentHandler := comments.NewHandler(svc.Comments)
	transformHandler := transforms.NewHandler(svc.Transforms)
	adminHandler := admin.NewHandler(svc.Dashboard)

	commentLimiter := middleware.NewWindowLimiter(deps.CacheProvider, "comments", cfg.RateLimitCommentTimes, cfg.RateLimitCommentWindow)
	authenticate := middleware.Authenticate(svc.Auth)
	uploadSlot := deps.UploadLimiter.MiddlewareWithBlock(cfg.UploadQueueTimeout)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) {
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		apiGroup.GET("/healthchecker", deps.Health.HandleDatabase)

		authGroup := apiGroup.Group("/auth")
		authGroup.Use(deps.AuthRateLimiter.Middleware())
		{
			authGroup.POST("/signup", authHandler.SignupHandlerFunc)
			authGroup.POST("/login", authHandler.LoginHandlerFunc)
			authGroup.GET("/refresh_token", authHandler.RefreshTokenHandlerFunc)
			authGroup.POST("/logout", authenticate, authHandler.LogoutHandlerFunc)
		}

		protected := apiGroup.Group("")
		protected.Use(deps.APIRateLimiter.Middleware())
		protected.Use(authenticate)
		{
			usersGroup := protected.Group("/users")
			{
				usersGroup.GET("/me", userHandler.GetMe)
				usersGroup.PATCH("/me", userHandler.UpdateMe)
				usersGroup.PATCH("/avatar", uploadSlot, userHandler.UpdateAvatar)
				usersGroup.GET("/:username", userHandler.GetByUsername)
				usersGroup.PATCH("/admin/:username/ban", middleware.RequireRole(models.RoleAdmin), userHandler.Ban)
			}

			imagesGroup := protected.Group("/images")
			{
				imagesGroup.POST("", uploadSlot, pictureHandler.UploadPicture)
				imagesGroup.GET("", pictureHandler.ListPictures)
				imagesGroup.GET("/:id", pictureHandler.GetPicture)
				imagesGroup.PATCH("/:id", pictureHandler.UpdatePicture)
				imagesGroup.DELETE("/:id", pictureHandler.DeletePicture)
			}

			commentsGroup := protected.Group("/comments")
			{
				commentsGroup.POST("", commentLimiter.Middleware(), commentHandler.CreateComment)
				commentsGroup.GET("/picture/:picture_id", commentHandler.ListComments)
				commentsGroup.GET("/:id", commentHandler.GetComment)
				commentsGroup.PATCH("/:id", commentLimiter.Middleware(), commentHandler.UpdateComment)
				commentsGroup.DELETE("/:id", commentHandler.DeleteComment)
			}

			transformGroup := protected.Group("/transform")
			{
				transformGroup.POST("", uploadSlot, transformHandler.CreateTransform)
				transformGroup.GET("", transformHandler.ListTransforms)
				transformGroup.GET("/:id", transformHandler.GetTransform)
				transformGroup.PATCH("/:id", uploadSlot, transformHandler.UpdateTransform)
				transformGroup.DELETE("/:id", transformHandler.DeleteTransform)
				transformGroup.GET("/:id/qr", transformHandler.GetQRCode)
			}

			adminGroup := protected.Group("/admin")
			adminGroup.Use(middleware.RequireRole(models.RoleAdmin))
			{
				adminGroup.GET("/stats", adminHandler.GetStats)
				adminGroup.POST("/stats/refresh", adminHandler.RefreshStats)
			}
		}
	}
}
