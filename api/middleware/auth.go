package middleware

import (
	"net/http"
	"strings"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
	ContextTokenKey  = "token"
)

// BearerToken 从 Authorization 头中取出 Bearer 令牌
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate 校验访问令牌并把当前用户放入上下文
func Authenticate(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := authService.CurrentUser(c.Request.Context(), token)
		if err != nil {
			common.RespondErr(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// CurrentUser 返回 Authenticate 放入上下文的用户
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
