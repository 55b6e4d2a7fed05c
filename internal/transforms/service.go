// Package transforms 变换工作流：为原图生成变换副本和指向它的二维码
package transforms

import (
	"context"

	"github.com/anoixa/photogram/database/models"
	picturesrepo "github.com/anoixa/photogram/database/repo/pictures"
	transformsrepo "github.com/anoixa/photogram/database/repo/transforms"
	"github.com/anoixa/photogram/internal/access"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/internal/media"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service 变换工作流
type Service struct {
	repo     *transformsrepo.Repository
	pictures *picturesrepo.Repository
	media    media.Store
	log      *zap.Logger
}

// NewService 创建变换工作流
func NewService(repo *transformsrepo.Repository, pictures *picturesrepo.Repository, store media.Store) *Service {
	return &Service{
		repo:     repo,
		pictures: pictures,
		media:    store,
		log:      logger.Named("transforms"),
	}
}

// Create 对原图生成变换副本，再上传编码副本地址的二维码，最后保存记录
// 任一步失败时已上传的对象会被删除，不会留下没有二维码的记录
func (s *Service) Create(ctx context.Context, requester *models.User, pictureID uint, raw map[string]interface{}) (*models.TransformedPicture, error) {
	params, err := imaging.Parse(raw)
	if err != nil {
		return nil, err
	}

	picture, err := s.pictures.GetPictureByID(ctx, pictureID)
	if err != nil {
		return nil, err
	}
	if picture == nil {
		return nil, errs.New(errs.ErrNotFound, "picture not found")
	}
	if !access.Allowed(requester, picture.UserID) {
		return nil, errs.New(errs.ErrForbidden, "not allowed to transform this picture")
	}

	transformed, err := s.media.UploadTransformed(ctx, requester.ID, media.Asset{URL: picture.URL, PublicID: picture.PublicID}, params)
	if err != nil {
		return nil, err
	}

	qr, err := s.uploadQR(ctx, requester.ID, transformed.URL)
	if err != nil {
		s.cleanup(transformed.PublicID)
		return nil, err
	}

	tp := &models.TransformedPicture{
		OriginalPictureID: picture.ID,
		URL:               transformed.URL,
		PublicID:          transformed.PublicID,
		QRURL:             &qr.URL,
		QRPublicID:        &qr.PublicID,
		Params:            params.ToMap(),
		UserID:            requester.ID,
	}
	if err := s.repo.Create(ctx, tp); err != nil {
		s.cleanup(transformed.PublicID, qr.PublicID)
		return nil, err
	}

	s.log.Info("Transformed picture created",
		zap.Uint("transform_id", tp.ID),
		zap.Uint("picture_id", picture.ID),
		zap.String("transformation", params.Transformation()))
	return tp, nil
}

func (s *Service) uploadQR(ctx context.Context, userID uint, url string) (media.Asset, error) {
	png, err := media.EncodeQR(url)
	if err != nil {
		return media.Asset{}, err
	}
	return s.media.UploadQR(ctx, userID, png)
}

// cleanup 尽力删除远端对象，只记录失败
func (s *Service) cleanup(publicIDs ...string) {
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := s.media.Delete(context.Background(), id); err != nil {
			s.log.Error("Failed to delete remote object", zap.String("public_id", id), zap.Error(err))
		}
	}
}

// Get 获取变换记录，仅所有者或管理员可访问
func (s *Service) Get(ctx context.Context, id uint, requester *models.User) (*models.TransformedPicture, error) {
	tp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tp == nil {
		return nil, errs.New(errs.ErrNotFound, "transformed picture not found")
	}
	if !access.Allowed(requester, tp.UserID) {
		return nil, errs.New(errs.ErrForbidden, "not allowed to access this transformed picture")
	}
	return tp, nil
}

// Update 在已有对象上重新应用变换并替换二维码
// 存储没有返回新地址时视为失败，原记录保持不变
func (s *Service) Update(ctx context.Context, id uint, requester *models.User, raw map[string]interface{}) (*models.TransformedPicture, error) {
	params, err := imaging.Parse(raw)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	url, err := s.media.ApplyTransformInPlace(ctx, current.PublicID, params)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, errs.New(errs.ErrStorageUnavailable, "media store returned no transformed url")
	}

	qr, err := s.uploadQR(ctx, current.UserID, url)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.ReplaceAssets(ctx, id, transformsrepo.Assets{
		URL:        url,
		QRURL:      qr.URL,
		QRPublicID: qr.PublicID,
		Params:     params.ToMap(),
	})
	if err == nil && updated == nil {
		err = errs.New(errs.ErrNotFound, "transformed picture not found")
	}
	if err != nil {
		s.cleanup(qr.PublicID)
		return nil, err
	}

	if current.QRPublicID != nil {
		s.cleanup(*current.QRPublicID)
	}
	return updated, nil
}

// Delete 先删除远端的变换图和二维码，两者都成功后才删除本地记录
func (s *Service) Delete(ctx context.Context, id uint, requester *models.User) error {
	tp, err := s.Get(ctx, id, requester)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.media.Delete(gctx, tp.PublicID)
	})
	if tp.QRPublicID != nil && *tp.QRPublicID != "" {
		g.Go(func() error {
			return s.media.Delete(gctx, *tp.QRPublicID)
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("Remote delete failed, transformed picture kept",
			zap.Uint("transform_id", tp.ID),
			zap.Error(err))
		return err
	}

	deleted, err := s.repo.Delete(ctx, tp.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.New(errs.ErrNotFound, "transformed picture not found")
	}
	return nil
}

// ListForUser 列出用户的全部变换记录
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]*models.TransformedPicture, error) {
	return s.repo.ListByUser(ctx, userID)
}

// QRCode 按记录当前地址重新生成二维码 PNG
func (s *Service) QRCode(ctx context.Context, id uint, requester *models.User) ([]byte, error) {
	tp, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	return media.EncodeQR(tp.URL)
}
