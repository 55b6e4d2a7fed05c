package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/internal/errs"
	"gorm.io/gorm"
)

// Repository 账户仓库，封装所有用户相关的数据库操作
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的账户仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// ProfilePatch 资料更新内容，nil 字段保持不变
type ProfilePatch struct {
	FullName     *string
	Email        *string
	PasswordHash *string
}

// CreateUser 创建用户。空库中的第一个用户自动成为管理员
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := checkUnique(tx, 0, user.FullName, user.Email); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count == 0 {
			user.Role = models.RoleAdmin
		} else if user.Role == "" {
			user.Role = models.RoleUser
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

// GetUserByEmail 通过邮箱获取用户，不存在时返回 nil, nil
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

// GetUserByUsername 通过用户名获取用户，不存在时返回 nil, nil
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "full_name = ?", username)
}

// GetUserByID 通过 ID 获取用户，不存在时返回 nil, nil
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 按邮箱定位用户并覆盖资料，用户不存在时返回 nil, nil
func (r *Repository) UpdateProfile(ctx context.Context, email string, patch ProfilePatch) (*models.User, error) {
	var user models.User
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}

		newName, newEmail := "", ""
		if patch.FullName != nil && *patch.FullName != user.FullName {
			newName = *patch.FullName
		}
		if patch.Email != nil && *patch.Email != user.Email {
			newEmail = *patch.Email
		}
		if err := checkUnique(tx, user.ID, newName, newEmail); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if patch.FullName != nil {
			updates["full_name"] = *patch.FullName
		}
		if patch.Email != nil {
			updates["email"] = *patch.Email
		}
		if patch.PasswordHash != nil {
			updates["password"] = *patch.PasswordHash
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// SetRefreshToken 保存或清除 (nil) 用户当前的刷新令牌
func (r *Repository) SetRefreshToken(ctx context.Context, userID uint, token *string) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("refresh_token", token).Error
	})
}

// UpdateAvatar 设置头像，并把头像记录为该用户的一张图片
func (r *Repository) UpdateAvatar(ctx context.Context, username, url, publicID string) (*models.User, error) {
	var user models.User
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("full_name = ?", username).First(&user).Error; err != nil {
			return err
		}

		picture := &models.Picture{URL: url, PublicID: publicID, UserID: user.ID}
		if err := tx.Create(picture).Error; err != nil {
			return fmt.Errorf("failed to record avatar picture: %w", err)
		}

		count, err := countPictures(tx, user.ID)
		if err != nil {
			return err
		}

		user.Avatar = &url
		user.PictureCount = count
		return tx.Model(&user).Updates(map[string]interface{}{
			"avatar":        url,
			"picture_count": count,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// RefreshPictureCount 重新统计用户图片数并写回用户表
func (r *Repository) RefreshPictureCount(ctx context.Context, userID uint) (int, error) {
	var count int
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var err error
		if count, err = countPictures(tx, userID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("picture_count", count).Error
	})
	return count, err
}

// BanUser 封禁用户，用户不存在时返回 false
func (r *Repository) BanUser(ctx context.Context, username string) (bool, error) {
	var affected int64
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("full_name = ?", username).Update("is_banned", true)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListUsers 分页获取用户
func (r *Repository) ListUsers(ctx context.Context, page, pageSize int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	db := r.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	err := db.Order("id asc").Offset(offset).Limit(pageSize).Find(&users).Error
	return users, total, err
}

// countPictures 统计用户图片数
func countPictures(tx *gorm.DB, userID uint) (int, error) {
	var count int64
	if err := tx.Model(&models.Picture{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pictures: %w", err)
	}
	return int(count), nil
}

// checkUnique 检查用户名和邮箱是否已被其他用户占用，空字符串跳过检查
func checkUnique(tx *gorm.DB, selfID uint, fullName, email string) error {
	check := func(column, value, label string) error {
		if value == "" {
			return nil
		}
		var count int64
		if err := tx.Model(&models.User{}).Where(column+" = ? AND id <> ?", value, selfID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errs.Newf(errs.ErrConflict, "%s already exists", label)
		}
		return nil
	}
	if err := check("email", email, "account with this email"); err != nil {
		return err
	}
	return check("full_name", fullName, "username")
}
