package pictures

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 图片仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// CreatePicture 在同一事务中创建图片、解析标签并刷新用户图片计数
// tagNames 应已完成规范化和去重
func (r *Repository) CreatePicture(ctx context.Context, picture *models.Picture, tagNames []string) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		tags, err := getOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}
		picture.Tags = tags

		if err := tx.Create(picture).Error; err != nil {
			return fmt.Errorf("failed to create picture: %w", err)
		}
		return refreshPictureCount(tx, picture.UserID)
	})
}

// getOrCreateTags 按名称查找标签，不存在则插入
func getOrCreateTags(tx *gorm.DB, names []string) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		// 并发插入同名标签时依赖唯一索引，冲突后重新查询
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Tag{Name: name}).Error; err != nil {
			return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		var tag models.Tag
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, fmt.Errorf("failed to load tag %q: %w", name, err)
		}
		tags = append(tags, &tag)
	}
	return tags, nil
}

// GetPictureByID 获取图片及其标签，不存在时返回 nil, nil
func (r *Repository) GetPictureByID(ctx context.Context, id uint) (*models.Picture, error) {
	var picture models.Picture
	err := r.db.WithContext(ctx).Preload("Tags").First(&picture, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &picture, nil
}

// Exists 检查图片是否存在
func (r *Repository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Picture{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListByUser 分页获取用户的图片，按创建时间倒序
func (r *Repository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Picture, int64, error) {
	var pictures []*models.Picture
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Picture{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Tags").Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&pictures).Error
	return pictures, total, err
}

// ListByTag 按标签名分页获取图片，userID 为 0 时不限所有者
func (r *Repository) ListByTag(ctx context.Context, tag string, userID uint, offset, limit int) ([]*models.Picture, int64, error) {
	var pictures []*models.Picture
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Picture{}).
		Joins("JOIN picture_tag_association pta ON pta.picture_id = pictures.id").
		Joins("JOIN tags ON tags.id = pta.tag_id").
		Where("tags.name = ?", tag)
	if userID != 0 {
		db = db.Where("pictures.user_id = ?", userID)
	}
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Tags").Order("pictures.created_at desc, pictures.id desc").Offset(offset).Limit(limit).Find(&pictures).Error
	return pictures, total, err
}

// UpdateDescription 只修改描述，图片不存在时返回 nil, nil
func (r *Repository) UpdateDescription(ctx context.Context, id uint, description *string) (*models.Picture, error) {
	var picture models.Picture
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&picture, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&picture).Update("description", description).Error; err != nil {
			return err
		}
		return tx.Preload("Tags").First(&picture, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &picture, nil
}

// DeletePicture 删除图片记录及其评论、变换记录和标签关联，并刷新用户图片计数
// 远端对象须由调用方在此之前删除
func (r *Repository) DeletePicture(ctx context.Context, id uint) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var picture models.Picture
		if err := tx.First(&picture, id).Error; err != nil {
			return err
		}

		if err := tx.Where("picture_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("original_picture_id = ?", id).Delete(&models.TransformedPicture{}).Error; err != nil {
			return fmt.Errorf("failed to delete transformed pictures: %w", err)
		}
		if err := tx.Model(&picture).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to detach tags: %w", err)
		}
		if err := tx.Delete(&picture).Error; err != nil {
			return fmt.Errorf("failed to delete picture: %w", err)
		}
		// 头像指向被删除的对象时一并清空
		if err := tx.Model(&models.User{}).
			Where("id = ? AND avatar = ?", picture.UserID, picture.URL).
			Update("avatar", nil).Error; err != nil {
			return fmt.Errorf("failed to clear avatar: %w", err)
		}
		return refreshPictureCount(tx, picture.UserID)
	})
}

// refreshPictureCount 重新统计并写回用户的图片数量
func refreshPictureCount(tx *gorm.DB, userID uint) error {
	var count int64
	if err := tx.Model(&models.Picture{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count pictures: %w", err)
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).Update("picture_count", count).Error
}
