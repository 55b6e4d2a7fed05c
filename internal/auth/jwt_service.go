package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 令牌作用域，访问令牌和刷新令牌不可互换
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

// TokenPair 包含访问令牌和刷新令牌
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// TokenConfig 保存 JWT 配置
type TokenConfig struct {
	Secret           []byte
	Method           jwt.SigningMethod
	ExpiresIn        time.Duration
	RefreshExpiresIn time.Duration
}

// JWTService 签发和解析令牌
type JWTService struct {
	config TokenConfig
	mutex  sync.RWMutex
}

// NewJWTService 从配置创建 JWT 服务
func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long, got %d", len(cfg.JWTSecret))
	}

	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.JWTAlgorithm)
	}

	s := &JWTService{}
	s.SetConfig(TokenConfig{
		Secret:           []byte(cfg.JWTSecret),
		Method:           method,
		ExpiresIn:        cfg.JWTAccessTTL,
		RefreshExpiresIn: cfg.JWTRefreshTTL,
	})
	return s, nil
}

// GetConfig 获取当前 JWT 配置（只读）
func (s *JWTService) GetConfig() TokenConfig {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return TokenConfig{
		Secret:           append([]byte{}, s.config.Secret...),
		Method:           s.config.Method,
		ExpiresIn:        s.config.ExpiresIn,
		RefreshExpiresIn: s.config.RefreshExpiresIn,
	}
}

// SetConfig 设置 JWT 配置
func (s *JWTService) SetConfig(config TokenConfig) {
	if config.Method == nil {
		config.Method = jwt.SigningMethodHS256
	}
	if config.ExpiresIn <= 0 {
		config.ExpiresIn = 15 * time.Minute
	}
	if config.RefreshExpiresIn <= 0 {
		config.RefreshExpiresIn = 7 * 24 * time.Hour
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.config = config
}

// GenerateTokens 为用户邮箱签发一对令牌
func (s *JWTService) GenerateTokens(email string) (*TokenPair, error) {
	config := s.GetConfig()

	access, accessExpiry, err := s.sign(config, email, ScopeAccess, config.ExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, refreshExpiry, err := s.sign(config, email, ScopeRefresh, config.RefreshExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:        access,
		AccessTokenExpiry:  accessExpiry,
		RefreshToken:       refresh,
		RefreshTokenExpiry: refreshExpiry,
	}, nil
}

// IssueAccessToken 签发访问令牌
func (s *JWTService) IssueAccessToken(email string) (string, time.Time, error) {
	config := s.GetConfig()
	return s.sign(config, email, ScopeAccess, config.ExpiresIn)
}

// IssueRefreshToken 签发刷新令牌
func (s *JWTService) IssueRefreshToken(email string) (string, time.Time, error) {
	config := s.GetConfig()
	return s.sign(config, email, ScopeRefresh, config.RefreshExpiresIn)
}

func (s *JWTService) sign(config TokenConfig, email, scope string, ttl time.Duration) (string, time.Time, error) {
	if len(config.Secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret is not initialized")
	}

	now := time.Now()
	expiry := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   email,
		"iat":   now.Unix(),
		"exp":   expiry.Unix(),
		"scope": scope,
		"jti":   uuid.NewString(), // 同一秒内签发的令牌互不相同
	}

	token, err := jwt.NewWithClaims(config.Method, claims).SignedString(config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// ParseToken 解析和验证 JWT 令牌
func (s *JWTService) ParseToken(tokenString string) (jwt.MapClaims, error) {
	config := s.GetConfig()
	if len(config.Secret) == 0 {
		return nil, errors.New("JWT secret is not initialized")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.Secret, nil
	}, jwt.WithValidMethods([]string{config.Method.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// decode 校验令牌和作用域，返回主体邮箱
func (s *JWTService) decode(tokenString, scope string) (string, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return "", errs.Wrap(errs.ErrUnauthorized, err, "could not validate credentials")
	}

	if got, _ := claims["scope"].(string); got != scope {
		return "", errs.New(errs.ErrUnauthorized, "invalid scope for token")
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return "", errs.New(errs.ErrUnauthorized, "could not validate credentials")
	}
	return email, nil
}

// DecodeAccessToken 解析访问令牌，返回用户邮箱
func (s *JWTService) DecodeAccessToken(tokenString string) (string, error) {
	return s.decode(tokenString, ScopeAccess)
}

// DecodeRefreshToken 解析刷新令牌，返回用户邮箱
func (s *JWTService) DecodeRefreshToken(tokenString string) (string, error) {
	return s.decode(tokenString, ScopeRefresh)
}
