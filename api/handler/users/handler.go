package users

import (
	"net/http"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/api/middleware"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/users"
	"github.com/gin-gonic/gin"
)

// Handler 用户处理器
type Handler struct {
	directory      *users.Directory
	maxUploadBytes int64
}

// NewHandler 创建用户处理器
func NewHandler(directory *users.Directory, maxUploadMB int) *Handler {
	return &Handler{
		directory:      directory,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

type updateProfileRequestBody struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// GetMe 当前用户资料，图片数量实时统计
func (h *Handler) GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if _, err := h.directory.PictureCount(c.Request.Context(), user); err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, user)
}

// UpdateMe 修改用户名、邮箱或密码
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateProfileRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	updated, err := h.directory.UpdateProfile(c.Request.Context(), user.Email, users.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, updated)
}

// UpdateAvatar 上传新头像
func (h *Handler) UpdateAvatar(c *gin.Context) {
	data, err := common.ReadUpload(c, "file", h.maxUploadBytes)
	if err != nil {
		common.RespondErr(c, err)
		return
	}

	updated, err := h.directory.UploadAvatar(c.Request.Context(), middleware.CurrentUser(c), data)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccess(c, updated)
}

// GetByUsername 公开的用户资料
func (h *Handler) GetByUsername(c *gin.Context) {
	user, err := h.directory.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	if user == nil {
		common.RespondErr(c, errs.New(errs.ErrNotFound, "user not found"))
		return
	}
	common.RespondSuccess(c, user)
}

// Ban 封禁用户，仅管理员
func (h *Handler) Ban(c *gin.Context) {
	username := c.Param("username")
	ok, err := h.directory.Ban(c.Request.Context(), username)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	if !ok {
		common.RespondErr(c, errs.New(errs.ErrNotFound, "user not found"))
		return
	}
	common.RespondSuccessMessage(c, "User banned", gin.H{"username": username})
}
