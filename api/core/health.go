package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/config"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthChecker 返回各组件状态
type HealthChecker interface {
	Health(ctx context.Context) map[string]error
	PingDatabase(ctx context.Context) error
}

// HealthHandler 健康检查
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Handle GET /health，任一组件不可用时返回 503
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	httpStatus := http.StatusOK
	for name, err := range h.checker.Health(ctx) {
		if err != nil {
			checks[name] = "error: " + err.Error()
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(httpStatus, gin.H{
		"status":  http.StatusText(httpStatus),
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.VersionString(),
		"checks":  checks,
	})
}

// HandleDatabase GET /api/healthchecker，只检查数据库
func (h *HealthHandler) HandleDatabase(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.checker.PingDatabase(ctx); err != nil {
		common.RespondError(c, http.StatusInternalServerError, "Error connecting to the database")
		return
	}
	common.RespondSuccessMessage(c, "Database is reachable", nil)
}
