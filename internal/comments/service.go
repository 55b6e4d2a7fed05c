// Package comments 图片评论
package comments

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/anoixa/photogram/database/models"
	commentsrepo "github.com/anoixa/photogram/database/repo/comments"
	picturesrepo "github.com/anoixa/photogram/database/repo/pictures"
	"github.com/anoixa/photogram/internal/access"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// MaxTextLength 评论最大长度
const MaxTextLength = 1000

// Service 评论服务
type Service struct {
	repo     *commentsrepo.Repository
	pictures *picturesrepo.Repository
	log      *zap.Logger
}

// NewService 创建评论服务
func NewService(repo *commentsrepo.Repository, pictures *picturesrepo.Repository) *Service {
	return &Service{
		repo:     repo,
		pictures: pictures,
		log:      logger.Named("comments"),
	}
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.New(errs.ErrValidation, "comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", errs.Newf(errs.ErrValidation, "comment text exceeds %d characters", MaxTextLength)
	}
	return text, nil
}

func (s *Service) requirePicture(ctx context.Context, pictureID uint) error {
	ok, err := s.pictures.Exists(ctx, pictureID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.ErrNotFound, "picture not found")
	}
	return nil
}

// Create 在图片下发表评论
func (s *Service) Create(ctx context.Context, pictureID uint, text string, author *models.User) (*models.Comment, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}
	if err := s.requirePicture(ctx, pictureID); err != nil {
		return nil, err
	}

	comment := &models.Comment{Text: text, UserID: author.ID, PictureID: pictureID}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// List 分页列出图片的评论，图片不存在时返回 ErrNotFound
func (s *Service) List(ctx context.Context, pictureID uint, offset, limit int) ([]*models.Comment, error) {
	if err := s.requirePicture(ctx, pictureID); err != nil {
		return nil, err
	}
	return s.repo.ListByPicture(ctx, pictureID, offset, limit)
}

// Get 获取单条评论
func (s *Service) Get(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, errs.New(errs.ErrNotFound, "comment not found")
	}
	return comment, nil
}

// Update 修改评论，只有作者本人可以修改
// 评论不存在和不属于作者都返回 ErrNotFound
func (s *Service) Update(ctx context.Context, id uint, text string, author *models.User) (*models.Comment, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	comment, err := s.repo.UpdateText(ctx, id, author.ID, text)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, errs.New(errs.ErrNotFound, "comment not found")
	}
	return comment, nil
}

// Delete 删除评论，作者本人或版主、管理员可以删除
func (s *Service) Delete(ctx context.Context, id uint, requester *models.User) (*models.Comment, error) {
	comment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanModerate(requester, comment.UserID) {
		return nil, errs.New(errs.ErrForbidden, "not allowed to delete this comment")
	}

	deleted, err := s.repo.DeleteComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, errs.New(errs.ErrNotFound, "comment not found")
	}

	if deleted.UserID != requester.ID {
		s.log.Info("Comment removed by moderator",
			zap.Uint("comment_id", deleted.ID),
			zap.Uint("moderator_id", requester.ID))
	}
	return deleted, nil
}
