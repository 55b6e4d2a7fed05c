package auth

import (
	"net/http"
	"strings"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/api/middleware"
	authsvc "github.com/anoixa/photogram/internal/auth"
	"github.com/anoixa/photogram/internal/users"
	"github.com/gin-gonic/gin"
)

// Handler 认证处理器
type Handler struct {
	auth *authsvc.Service
}

// NewHandler 创建认证处理器
func NewHandler(authService *authsvc.Service) *Handler {
	return &Handler{auth: authService}
}

type signupRequestBody struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// loginRequestBody 兼容 OAuth2 表单，username 字段填写邮箱
type loginRequestBody struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(pair *authsvc.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}
}

// SignupHandlerFunc 注册
func (h *Handler) SignupHandlerFunc(c *gin.Context) {
	var req signupRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), users.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondCreated(c, user)
}

// LoginHandlerFunc 登录，支持 JSON 和表单
func (h *Handler) LoginHandlerFunc(c *gin.Context) {
	var req loginRequestBody
	if err := c.ShouldBind(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = strings.TrimSpace(req.Username)
	}
	if email == "" {
		common.RespondError(c, http.StatusBadRequest, "email is required")
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Login successful", newTokenResponse(pair))
}

// RefreshTokenHandlerFunc 用 Authorization 头中的刷新令牌换取新令牌
func (h *Handler) RefreshTokenHandlerFunc(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		common.RespondError(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Refresh token successful", newTokenResponse(pair))
}

// LogoutHandlerFunc 吊销当前访问令牌
func (h *Handler) LogoutHandlerFunc(c *gin.Context) {
	user := middleware.CurrentUser(c)
	token := c.GetString(middleware.ContextTokenKey)

	if err := h.auth.Logout(c.Request.Context(), user, token); err != nil {
		common.RespondErr(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Logout successful", nil)
}
