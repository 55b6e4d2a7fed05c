package repositories

import (
	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/repo/accounts"
	"github.com/anoixa/photogram/database/repo/blacklist"
	"github.com/anoixa/photogram/database/repo/comments"
	"github.com/anoixa/photogram/database/repo/dashboard"
	"github.com/anoixa/photogram/database/repo/pictures"
	"github.com/anoixa/photogram/database/repo/transforms"
)

// Repositories 集中管理所有数据库仓库
type Repositories struct {
	Accounts   *accounts.Repository
	Blacklist  *blacklist.Repository
	Pictures   *pictures.Repository
	Comments   *comments.Repository
	Transforms *transforms.Repository
	Dashboard  *dashboard.Repository
}

// NewRepositories 创建所有仓库实例
func NewRepositories(provider database.Provider) *Repositories {
	return &Repositories{
		Accounts:   accounts.NewRepository(provider),
		Blacklist:  blacklist.NewRepository(provider),
		Pictures:   pictures.NewRepository(provider),
		Comments:   comments.NewRepository(provider),
		Transforms: transforms.NewRepository(provider),
		Dashboard:  dashboard.NewRepository(provider),
	}
}
