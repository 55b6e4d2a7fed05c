package blacklist

import (
	"context"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 令牌黑名单仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的黑名单仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Add 将令牌加入黑名单，已存在时不做任何事
func (r *Repository) Add(ctx context.Context, userID uint, token string) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoNothing: true,
		}).Create(&models.Blacklisted{UserID: userID, Token: token}).Error
	})
}

// Contains 令牌是否已被加入黑名单
func (r *Repository) Contains(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Blacklisted{}).Where("token = ?", token).Count(&count).Error
	return count > 0, err
}
