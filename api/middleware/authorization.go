package middleware

import (
	"net/http"
	"slices"

	"github.com/anoixa/photogram/api/common"
	"github.com/anoixa/photogram/database/models"
	"github.com/gin-gonic/gin"
)

// RequireRole 放在 Authenticate 之后，只放行角色在 allowed 中的用户
func RequireRole(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Header("WWW-Authenticate", "Bearer")
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !slices.Contains(allowed, user.Role) {
			common.RespondErrorAbort(c, http.StatusForbidden, "Operation forbidden")
			return
		}
		c.Next()
	}
}
