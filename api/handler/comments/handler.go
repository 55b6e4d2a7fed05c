package comments

import (
	"net/http"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/api/middleware"
	"github.com/anoixa/photogram/internal/comments"
	"github.com/gin-gonic/gin"
)

// Handler 评论处理器
type Handler struct {
	comments *comments.Service
}

// NewHandler 创建评论处理器
func NewHandler(service *comments.Service) *Handler {
	return &Handler{comments: service}
}

type createRequestBody struct {
	PictureID uint   `json:"picture_id" binding:"required"`
	Text      string `json:"text"`
}

type updateRequestBody struct {
	Text string `json:"text"`
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	var req createRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), req.PictureID, req.Text, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondCreated(c, comment)
}

// ListComments 分页列出图片的评论
func (h *Handler) ListComments(c *gin.Context) {
	pictureID, ok := common.ParseID(c, "picture_id")
	if !ok {
		return
	}
	offset, limit := common.Pagination(c)

	list, err := h.comments.List(c.Request.Context(), pictureID, offset, limit)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, list)
}

// GetComment 获取单条评论
func (h *Handler) GetComment(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, comment)
}

// UpdateComment 作者修改评论
func (h *Handler) UpdateComment(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	var req updateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), id, req.Text, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, comment)
}

// DeleteComment 作者、版主或管理员删除评论
func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Delete(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Comment deleted", comment)
}
