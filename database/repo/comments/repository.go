package comments

import (
	"context"
	"errors"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/base"
	"gorm.io/gorm"
)

// Repository 评论仓库
type Repository struct {
	*base.Repository[models.Comment]
	db database.Provider
}

// NewRepository 创建新的评论仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{
		Repository: base.NewRepository[models.Comment](db),
		db:         db,
	}
}

// ListByPicture 分页获取图片下的评论，按时间正序
func (r *Repository) ListByPicture(ctx context.Context, pictureID uint, offset, limit int) ([]*models.Comment, error) {
	var list []*models.Comment
	err := r.db.WithContext(ctx).
		Where("picture_id = ?", pictureID).
		Order("created_at asc, id asc").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}

// UpdateText 修改作者本人的评论，评论不存在或不属于该用户时返回 nil, nil
func (r *Repository) UpdateText(ctx context.Context, commentID, userID uint, text string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", commentID, userID).First(&comment).Error; err != nil {
			return err
		}
		comment.Text = text
		return tx.Model(&comment).Update("text", text).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// DeleteComment 删除评论并返回被删除的记录，不存在时返回 nil, nil
func (r *Repository) DeleteComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&comment, commentID).Error; err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}
