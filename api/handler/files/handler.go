package files

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/storage"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/anoixa/photogram/utils/mime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 对象存储后端的文件访问
type Handler struct {
	objects storage.Provider
}

// NewHandler 创建文件处理器
func NewHandler(objects storage.Provider) *Handler {
	return &Handler{objects: objects}
}

// ServeFile GET /files/*key
func (h *Handler) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !storage.IsValidStoragePath(key) {
		common.RespondError(c, http.StatusBadRequest, "Invalid file path")
		return
	}

	reader, err := h.objects.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			common.RespondError(c, http.StatusNotFound, "File not found")
			return
		}
		logger.Named("files").Error("Failed to read object", zap.String("key", key), zap.Error(err))
		common.RespondError(c, http.StatusBadGateway, "Storage unavailable")
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, mime.ContentTypeFor(key), reader, map[string]string{
		"Cache-Control":          "public, max-age=86400",
		"X-Content-Type-Options": "nosniff",
	})
}
