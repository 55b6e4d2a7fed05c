// Package users 用户目录：注册、查询、资料更新、头像和封禁
package users

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anoixa/photogram/cache"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/accounts"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/media"
	cryptopackage "github.com/anoixa/photogram/utils/crypto"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// 字段长度限制
const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
	MinPasswordLen = 6
	MaxPasswordLen = 72
)

// SignupInput 注册参数
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate 资料更新参数，nil 字段保持不变
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// Directory 用户目录
type Directory struct {
	repo       *accounts.Repository
	media      media.Store
	avatars    AvatarResolver
	cache      cache.Provider
	cacheTTL   time.Duration
	hashParams cryptopackage.Params
	log        *zap.Logger
}

// NewDirectory 创建用户目录，avatars 和 cacheProvider 可以为 nil
func NewDirectory(repo *accounts.Repository, store media.Store, avatars AvatarResolver, cacheProvider cache.Provider, cacheTTL time.Duration) *Directory {
	return &Directory{
		repo:       repo,
		media:      store,
		avatars:    avatars,
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
		hashParams: cryptopackage.DefaultParams,
		log:        logger.Named("users"),
	}
}

// SetHashParams 设置密码哈希参数（仅用于测试）
func (d *Directory) SetHashParams(p cryptopackage.Params) {
	d.hashParams = p
}

// HashPassword 校验长度并计算密码哈希
func (d *Directory) HashPassword(password string) (string, error) {
	if n := utf8.RuneCountInString(password); n < MinPasswordLen || n > MaxPasswordLen {
		return "", errs.Newf(errs.ErrValidation, "password must be between %d and %d characters", MinPasswordLen, MaxPasswordLen)
	}
	return cryptopackage.GenerateWithParams(password, d.hashParams)
}

// VerifyPassword 校验密码
func (d *Directory) VerifyPassword(plain, hash string) bool {
	ok, err := cryptopackage.ComparePasswordAndHash(plain, hash)
	if err != nil {
		d.log.Warn("Failed to compare password hash", zap.Error(err))
		return false
	}
	return ok
}

// Create 注册新用户，头像查询失败时忽略
func (d *Directory) Create(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	hash, err := d.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{FullName: username, Email: email, Password: hash}
	if d.avatars != nil {
		if avatar, err := d.avatars.Lookup(ctx, email); err != nil {
			d.log.Info("Avatar lookup failed", zap.String("email", email), zap.Error(err))
		} else if avatar != "" {
			user.Avatar = &avatar
		}
	}

	if err := d.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	d.log.Info("User created", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// ByEmail 按邮箱查找，不存在时返回 nil, nil
func (d *Directory) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.repo.GetUserByEmail(ctx, strings.ToLower(email))
}

// ByUsername 按用户名查找，不存在时返回 nil, nil
func (d *Directory) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.repo.GetUserByUsername(ctx, username)
}

// ByID 按 ID 查找，不存在时返回 nil, nil
func (d *Directory) ByID(ctx context.Context, id uint) (*models.User, error) {
	return d.repo.GetUserByID(ctx, id)
}

// cachedUser 认证路径所需的用户字段，不含密码和刷新令牌
type cachedUser struct {
	ID           uint        `json:"id"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	Avatar       *string     `json:"avatar"`
	Role         models.Role `json:"role"`
	IsBanned     bool        `json:"is_banned"`
	PictureCount int         `json:"picture_count"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Resolve 认证时按邮箱查找用户，优先读缓存
// 返回的用户不含 Password 和 RefreshToken
func (d *Directory) Resolve(ctx context.Context, email string) (*models.User, error) {
	key := cache.UserKey(email)
	if d.cache != nil {
		var cu cachedUser
		if err := d.cache.Get(ctx, key, &cu); err == nil {
			return &models.User{
				ID: cu.ID, FullName: cu.FullName, Email: cu.Email, Avatar: cu.Avatar,
				Role: cu.Role, IsBanned: cu.IsBanned, PictureCount: cu.PictureCount, CreatedAt: cu.CreatedAt,
			}, nil
		} else if !cache.IsCacheMiss(err) {
			d.log.Warn("User cache read failed", zap.Error(err))
		}
	}

	user, err := d.ByEmail(ctx, email)
	if err != nil || user == nil {
		return user, err
	}

	if d.cache != nil {
		cu := cachedUser{
			ID: user.ID, FullName: user.FullName, Email: user.Email, Avatar: user.Avatar,
			Role: user.Role, IsBanned: user.IsBanned, PictureCount: user.PictureCount, CreatedAt: user.CreatedAt,
		}
		if err := d.cache.Set(ctx, key, cu, d.cacheTTL); err != nil {
			d.log.Warn("User cache write failed", zap.Error(err))
		}
	}
	return user, nil
}

// invalidate 清除用户缓存
func (d *Directory) invalidate(ctx context.Context, emails ...string) {
	if d.cache == nil {
		return
	}
	for _, email := range emails {
		if err := d.cache.Delete(ctx, cache.UserKey(email)); err != nil {
			d.log.Warn("User cache invalidation failed", zap.String("email", email), zap.Error(err))
		}
	}
}

// InvalidateUser 按 ID 清除用户缓存，图片数或头像在图片目录中变化后调用
func (d *Directory) InvalidateUser(ctx context.Context, userID uint) {
	if d.cache == nil {
		return
	}
	user, err := d.ByID(ctx, userID)
	if err != nil {
		d.log.Warn("User cache invalidation lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	if user != nil {
		d.invalidate(ctx, user.Email)
	}
}

// UpdateProfile 覆盖用户名、邮箱或密码，用户不存在时返回 ErrNotFound
func (d *Directory) UpdateProfile(ctx context.Context, email string, in ProfileUpdate) (*models.User, error) {
	var patch accounts.ProfilePatch
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if err := validateUsername(name); err != nil {
			return nil, err
		}
		patch.FullName = &name
	}
	if in.Email != nil {
		newEmail := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validateEmail(newEmail); err != nil {
			return nil, err
		}
		patch.Email = &newEmail
	}
	if in.Password != nil {
		hash, err := d.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	user, err := d.repo.UpdateProfile(ctx, email, patch)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.ErrNotFound, "user not found")
	}
	d.invalidate(ctx, email, user.Email)
	return user, nil
}

// UpdateAvatar 设置头像并记录为用户的一张图片，用户不存在时返回 ErrNotFound
func (d *Directory) UpdateAvatar(ctx context.Context, username, url, publicID string) (*models.User, error) {
	user, err := d.repo.UpdateAvatar(ctx, username, url, publicID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.ErrNotFound, "user not found")
	}
	d.invalidate(ctx, user.Email)
	return user, nil
}

// UploadAvatar 上传头像文件后更新用户，入库失败时删除已上传的对象
func (d *Directory) UploadAvatar(ctx context.Context, user *models.User, data []byte) (*models.User, error) {
	asset, err := d.media.UploadOriginal(ctx, user.ID, data, generator.KindAvatar)
	if err != nil {
		return nil, err
	}

	updated, err := d.UpdateAvatar(ctx, user.FullName, asset.URL, asset.PublicID)
	if err != nil {
		if delErr := d.media.Delete(ctx, asset.PublicID); delErr != nil {
			d.log.Error("Failed to roll back avatar upload", zap.String("public_id", asset.PublicID), zap.Error(delErr))
		}
		return nil, err
	}
	return updated, nil
}

// PictureCount 重新统计并回写用户的图片数
func (d *Directory) PictureCount(ctx context.Context, user *models.User) (int, error) {
	count, err := d.repo.RefreshPictureCount(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	user.PictureCount = count
	d.invalidate(ctx, user.Email)
	return count, nil
}

// Ban 封禁用户，用户不存在时返回 false
func (d *Directory) Ban(ctx context.Context, username string) (bool, error) {
	user, err := d.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	ok, err := d.repo.BanUser(ctx, username)
	if err != nil {
		return false, err
	}
	d.invalidate(ctx, user.Email)
	if ok {
		d.log.Info("User banned", zap.String("username", username))
	}
	return ok, nil
}

// SetRefreshToken 保存或清除用户的刷新令牌
func (d *Directory) SetRefreshToken(ctx context.Context, userID uint, token *string) error {
	return d.repo.SetRefreshToken(ctx, userID, token)
}

// List 分页列出用户
func (d *Directory) List(ctx context.Context, page, pageSize int) ([]*models.User, int64, error) {
	return d.repo.ListUsers(ctx, page, pageSize)
}

func validateUsername(name string) error {
	if n := utf8.RuneCountInString(name); n < MinUsernameLen || n > MaxUsernameLen {
		return errs.Newf(errs.ErrValidation, "username must be between %d and %d characters", MinUsernameLen, MaxUsernameLen)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errs.New(errs.ErrValidation, "invalid email address")
	}
	return nil
}
