package pictures

import (
	"net/http"
	"strings"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/api/middleware"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/internal/pictures"
	"github.com/gin-gonic/gin"
)

// Handler 图片处理器
type Handler struct {
	pictures       *pictures.Service
	maxUploadBytes int64
}

// NewHandler 创建图片处理器
func NewHandler(service *pictures.Service, maxUploadMB int) *Handler {
	return &Handler{
		pictures:       service,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

type pictureResponse struct {
	*models.Picture
	TagNames []string `json:"tag_names"`
}

func newPictureResponse(p *models.Picture) pictureResponse {
	return pictureResponse{Picture: p, TagNames: p.TagNames()}
}

type updateRequestBody struct {
	Description *string `json:"description"`
}

// parseTags 支持重复的 tags 字段和逗号分隔的写法
func parseTags(values []string) []string {
	var tags []string
	for _, v := range values {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return tags
}

// UploadPicture 上传图片，multipart 字段：file、description、tags
func (h *Handler) UploadPicture(c *gin.Context) {
	data, err := common.ReadUpload(c, "file", h.maxUploadBytes)
	if err != nil {
		common.RespondErr(c, err)
		return
	}

	in := pictures.UploadInput{
		Data: data,
		Tags: parseTags(c.PostFormArray("tags")),
	}
	if desc, ok := c.GetPostForm("description"); ok && desc != "" {
		in.Description = &desc
	}

	picture, err := h.pictures.Upload(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondCreated(c, newPictureResponse(picture))
}

// ListPictures 分页列出自己的图片，可按 tag 过滤
func (h *Handler) ListPictures(c *gin.Context) {
	offset, limit := common.Pagination(c)
	list, total, err := h.pictures.List(c.Request.Context(), middleware.CurrentUser(c), c.Query("tag"), offset, limit)
	if err != nil {
		common.RespondErr(c, err)
		return
	}

	items := make([]pictureResponse, 0, len(list))
	for _, p := range list {
		items = append(items, newPictureResponse(p))
	}
	common.RespondSuccess(c, gin.H{"items": items, "total": total, "skip": offset, "limit": limit})
}

// GetPicture 获取单张图片
func (h *Handler) GetPicture(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	picture, err := h.pictures.Get(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, newPictureResponse(picture))
}

// UpdatePicture 修改描述
func (h *Handler) UpdatePicture(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	var req updateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	picture, err := h.pictures.UpdateDescription(c.Request.Context(), id, req.Description, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, newPictureResponse(picture))
}

// DeletePicture 删除图片及其远端对象
func (h *Handler) DeletePicture(c *gin.Context) {
	id, ok := common.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.pictures.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Picture deleted", gin.H{"id": id})
}
