package admin

import (
	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/internal/dashboard"
	"github.com/gin-gonic/gin"
)

// Handler 管理后台处理器
type Handler struct {
	dashboard *dashboard.Service
}

// NewHandler 创建管理后台处理器
func NewHandler(dashboardService *dashboard.Service) *Handler {
	return &Handler{dashboard: dashboardService}
}

// GetStats 站点统计
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.dashboard.GetStats(c.Request.Context())
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, stats)
}

// RefreshStats 丢弃缓存并重新统计
func (h *Handler) RefreshStats(c *gin.Context) {
	if err := h.dashboard.RefreshCache(c.Request.Context()); err != nil {
		common.RespondErr(c, err)
		return
	}
	h.GetStats(c)
}
