package auth

import (
	"context"
	"strings"

	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/blacklist"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/users"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// Service 注册、登录、刷新、登出和当前用户解析
type Service struct {
	jwt       *JWTService
	users     *users.Directory
	blacklist *blacklist.Repository
	log       *zap.Logger
}

// NewService 创建认证服务
func NewService(jwtService *JWTService, directory *users.Directory, blacklistRepo *blacklist.Repository) *Service {
	return &Service{
		jwt:       jwtService,
		users:     directory,
		blacklist: blacklistRepo,
		log:       logger.Named("auth"),
	}
}

// JWT 返回令牌服务
func (s *Service) JWT() *JWTService {
	return s.jwt
}

// Signup 注册新用户
func (s *Service) Signup(ctx context.Context, in users.SignupInput) (*models.User, error) {
	return s.users.Create(ctx, in)
}

// Login 校验邮箱和密码，签发令牌并保存刷新令牌
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.users.VerifyPassword(password, user.Password) {
		return nil, errs.New(errs.ErrUnauthorized, "invalid email or password")
	}
	if user.IsBanned {
		return nil, errs.New(errs.ErrUnauthorized, "user is banned")
	}

	return s.issue(ctx, user)
}

// Refresh 使用刷新令牌轮换整对令牌
// 令牌与用户当前保存的不一致时清除保存的令牌，迫使重新登录
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	email, err := s.jwt.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.ErrUnauthorized, "could not validate credentials")
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		if err := s.users.SetRefreshToken(ctx, user.ID, nil); err != nil {
			return nil, err
		}
		s.log.Warn("Refresh token mismatch, stored token revoked", zap.Uint("user_id", user.ID))
		return nil, errs.New(errs.ErrUnauthorized, "invalid refresh token")
	}
	if user.IsBanned {
		return nil, errs.New(errs.ErrForbidden, "user is banned")
	}

	return s.issue(ctx, user)
}

func (s *Service) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, err := s.jwt.GenerateTokens(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout 将访问令牌加入黑名单并清除刷新令牌
func (s *Service) Logout(ctx context.Context, user *models.User, accessToken string) error {
	if err := s.Blacklist(ctx, user.ID, accessToken); err != nil {
		return err
	}
	return s.users.SetRefreshToken(ctx, user.ID, nil)
}

// Blacklist 吊销令牌，重复吊销不报错
func (s *Service) Blacklist(ctx context.Context, userID uint, token string) error {
	return s.blacklist.Add(ctx, userID, token)
}

// CurrentUser 解析访问令牌对应的用户
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	email, err := s.jwt.DecodeAccessToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.Contains(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errs.New(errs.ErrUnauthorized, "token has been revoked")
	}

	user, err := s.users.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.ErrUnauthorized, "could not validate credentials")
	}
	if user.IsBanned {
		return nil, errs.New(errs.ErrForbidden, "user is banned")
	}
	return user, nil
}
