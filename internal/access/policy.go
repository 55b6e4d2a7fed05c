// Package access 资源访问策略
package access

import "github.com/anoixa/photogram/database/models"

// Allowed 请求者是资源所有者或管理员
func Allowed(requester *models.User, ownerID uint) bool {
	if requester == nil {
		return false
	}
	return requester.ID == ownerID || requester.IsAdmin()
}

// CanModerate 请求者是资源所有者，或具备版主及以上角色
func CanModerate(requester *models.User, ownerID uint) bool {
	if requester == nil {
		return false
	}
	return requester.ID == ownerID || requester.IsModerator()
}
