// Package pictures 图片目录：上传、查询、修改描述和删除
package pictures

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/anoixa/photogram/database/models"
	picturesrepo "github.com/anoixa/photogram/database/repo/pictures"
	transformsrepo "github.com/anoixa/photogram/database/repo/transforms"
	"github.com/anoixa/photogram/internal/access"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/media"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxTagLength 单个标签名的最大长度
const MaxTagLength = 25

// UploadInput 上传参数
type UploadInput struct {
	Data        []byte
	Description *string
	Tags        []string
}

// OwnerCache 图片写入改变了所有者的图片数或头像后，清除其缓存
type OwnerCache interface {
	InvalidateUser(ctx context.Context, userID uint)
}

// Service 图片目录服务
type Service struct {
	repo       *picturesrepo.Repository
	transforms *transformsrepo.Repository
	media      media.Store
	owners     OwnerCache
	log        *zap.Logger
}

// NewService 创建图片目录服务，owners 可以为 nil
func NewService(repo *picturesrepo.Repository, transforms *transformsrepo.Repository, store media.Store, owners OwnerCache) *Service {
	return &Service{
		repo:       repo,
		transforms: transforms,
		media:      store,
		owners:     owners,
		log:        logger.Named("pictures"),
	}
}

func (s *Service) ownerChanged(ctx context.Context, userID uint) {
	if s.owners != nil {
		s.owners.InvalidateUser(ctx, userID)
	}
}

// NormalizeTags 去除空白、转小写并去重，保持首次出现的顺序
func NormalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, r := range raw {
		name := strings.ToLower(strings.TrimSpace(r))
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagLength {
			return nil, errs.Newf(errs.ErrValidation, "tag %q exceeds %d characters", name, MaxTagLength)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	if len(tags) > models.MaxTagsPerPicture {
		return nil, errs.Newf(errs.ErrValidation, "a picture can have at most %d tags", models.MaxTagsPerPicture)
	}
	return tags, nil
}

// Upload 上传原图并保存记录
// 上传后发生的任何错误都会删除刚上传的远端对象
func (s *Service) Upload(ctx context.Context, owner *models.User, in UploadInput) (*models.Picture, error) {
	if len(in.Data) == 0 {
		return nil, errs.New(errs.ErrValidation, "file is required")
	}

	asset, err := s.media.UploadOriginal(ctx, owner.ID, in.Data, generator.KindOriginal)
	if err != nil {
		return nil, err
	}

	picture, err := s.persist(ctx, owner, asset, in)
	if err != nil {
		s.rollback(asset.PublicID)
		return nil, err
	}

	s.log.Info("Picture uploaded",
		zap.Uint("picture_id", picture.ID),
		zap.Uint("user_id", owner.ID),
		zap.Strings("tags", picture.TagNames()))
	return picture, nil
}

func (s *Service) persist(ctx context.Context, owner *models.User, asset media.Asset, in UploadInput) (*models.Picture, error) {
	tags, err := NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	picture := &models.Picture{
		URL:         asset.URL,
		PublicID:    asset.PublicID,
		Description: in.Description,
		UserID:      owner.ID,
	}
	if err := s.repo.CreatePicture(ctx, picture, tags); err != nil {
		return nil, err
	}
	s.ownerChanged(ctx, owner.ID)
	return picture, nil
}

// rollback 删除孤立的远端对象，请求上下文可能已取消，因此使用独立上下文
func (s *Service) rollback(publicID string) {
	if err := s.media.Delete(context.Background(), publicID); err != nil {
		s.log.Error("Failed to roll back uploaded object",
			zap.String("public_id", publicID),
			zap.Error(err))
	}
}

// Get 获取图片，仅所有者或管理员可访问
func (s *Service) Get(ctx context.Context, id uint, requester *models.User) (*models.Picture, error) {
	picture, err := s.repo.GetPictureByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if picture == nil {
		return nil, errs.New(errs.ErrNotFound, "picture not found")
	}
	if !access.Allowed(requester, picture.UserID) {
		return nil, errs.New(errs.ErrForbidden, "not allowed to access this picture")
	}
	return picture, nil
}

// List 分页列出用户自己的图片，tag 不为空时按标签过滤
func (s *Service) List(ctx context.Context, owner *models.User, tag string, offset, limit int) ([]*models.Picture, int64, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return s.repo.ListByUser(ctx, owner.ID, offset, limit)
	}

	// 管理员按标签查看所有用户的图片
	userID := owner.ID
	if owner.IsAdmin() {
		userID = 0
	}
	return s.repo.ListByTag(ctx, tag, userID, offset, limit)
}

// UpdateDescription 修改图片描述
func (s *Service) UpdateDescription(ctx context.Context, id uint, description *string, requester *models.User) (*models.Picture, error) {
	if _, err := s.Get(ctx, id, requester); err != nil {
		return nil, err
	}

	picture, err := s.repo.UpdateDescription(ctx, id, description)
	if err != nil {
		return nil, err
	}
	if picture == nil {
		return nil, errs.New(errs.ErrNotFound, "picture not found")
	}
	return picture, nil
}

// Delete 先删除远端对象（变换图、二维码和原图），全部成功后才删除本地记录
func (s *Service) Delete(ctx context.Context, id uint, requester *models.User) error {
	picture, err := s.Get(ctx, id, requester)
	if err != nil {
		return err
	}

	derived, err := s.transforms.ListByPicture(ctx, picture.ID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tp := range derived {
		publicIDs := []string{tp.PublicID}
		if tp.QRPublicID != nil && *tp.QRPublicID != "" {
			publicIDs = append(publicIDs, *tp.QRPublicID)
		}
		for _, publicID := range publicIDs {
			publicID := publicID
			g.Go(func() error {
				return s.media.Delete(gctx, publicID)
			})
		}
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("Remote delete of derived objects failed, picture kept",
			zap.Uint("picture_id", picture.ID),
			zap.Error(err))
		return err
	}

	if err := s.media.Delete(ctx, picture.PublicID); err != nil {
		s.log.Warn("Remote delete failed, picture kept",
			zap.Uint("picture_id", picture.ID),
			zap.Error(err))
		return err
	}

	if err := s.repo.DeletePicture(ctx, picture.ID); err != nil {
		return err
	}
	s.ownerChanged(ctx, picture.UserID)

	s.log.Info("Picture deleted", zap.Uint("picture_id", picture.ID), zap.Uint("user_id", requester.ID))
	return nil
}
