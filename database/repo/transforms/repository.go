package transforms

import (
	"context"
	"errors"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/base"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 变换图片仓库
type Repository struct {
	*base.Repository[models.TransformedPicture]
	db database.Provider
}

// NewRepository 创建新的变换图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{
		Repository: base.NewRepository[models.TransformedPicture](db),
		db:         db,
	}
}

// Assets 一次变换产生的远端对象
type Assets struct {
	URL        string
	QRURL      string
	QRPublicID string
	Params     datatypes.JSONMap
}

// ListByUser 获取用户的全部变换图片
func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]*models.TransformedPicture, error) {
	var list []*models.TransformedPicture
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&list).Error
	return list, err
}

// ListByPicture 获取原图的全部变换图片
func (r *Repository) ListByPicture(ctx context.Context, pictureID uint) ([]*models.TransformedPicture, error) {
	var list []*models.TransformedPicture
	err := r.db.WithContext(ctx).Where("original_picture_id = ?", pictureID).Order("id asc").Find(&list).Error
	return list, err
}

// ReplaceAssets 用新的 URL 和二维码覆盖记录，记录不存在时返回 nil, nil
func (r *Repository) ReplaceAssets(ctx context.Context, id uint, assets Assets) (*models.TransformedPicture, error) {
	var tp models.TransformedPicture
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tp, id).Error; err != nil {
			return err
		}
		tp.URL = assets.URL
		tp.QRURL = &assets.QRURL
		tp.QRPublicID = &assets.QRPublicID
		tp.Params = assets.Params
		return tx.Save(&tp).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tp, nil
}
