package transforms

import (
	"net/http"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/api/middleware"
	"github.com/anoixa/photogram/internal/transforms"
	"github.com/gin-gonic/gin"
)

// Handler 变换处理器
type Handler struct {
	transforms *transforms.Service
}

// NewHandler 创建变换处理器
func NewHandler(service *transforms.Service) *Handler {
	return &Handler{transforms: service}
}

type createRequestBody struct {
	PictureID uint                   `json:"picture_id" binding:"required"`
	Params    map[string]interface{} `json:"params"`
}

type updateRequestBody struct {
	Params map[string]interface{} `json:"params"`
}

// CreateTransform 生成变换副本和二维码
func (h *Handler) CreateTransform(c *gin.Context) {
	var req createRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	tp, err := h.transforms.Create(c.Request.Context(), middleware.CurrentUser(c), req.PictureID, req.Params)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondCreated(c, tp)
}

// ListTransforms 列出自己的变换记录
func (h *Handler) ListTransforms(c *gin.Context) {
	list, err := h.transforms.ListForUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, list)
}

// GetTransform 获取单条变换记录
func (h *Handler) GetTransform(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	tp, err := h.transforms.Get(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, tp)
}

// UpdateTransform 用新参数重新变换
func (h *Handler) UpdateTransform(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	var req updateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	tp, err := h.transforms.Update(c.Request.Context(), id, middleware.CurrentUser(c), req.Params)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, tp)
}

// DeleteTransform 删除变换记录及其远端对象
func (h *Handler) DeleteTransform(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.transforms.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Transformed picture deleted", gin.H{"id": id})
}

// GetQRCode 返回指向变换图的二维码 PNG
func (h *Handler) GetQRCode(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	png, err := h.transforms.QRCode(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
