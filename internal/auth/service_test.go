package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anoixa/photogram/cache/ristretto"
	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/database/dbtest"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/accounts"
	"github.com/anoixa/photogram/database/repo/blacklist"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/media/mediatest"
	"github.com/anoixa/photogram/internal/users"
	cryptopackage "github.com/anoixa/photogram/utils/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newJWT(t *testing.T) *JWTService {
	t.Helper()
	s, err := NewJWTService(&config.Config{
		JWTSecret:     testSecret,
		JWTAlgorithm:  "HS256",
		JWTAccessTTL:  15 * time.Minute,
		JWTRefreshTTL: time.Hour,
	})
	require.NoError(t, err)
	return s
}

func newService(t *testing.T) *Service {
	t.Helper()
	provider := dbtest.NewProvider(t)
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	dir := users.NewDirectory(accounts.NewRepository(provider), mediatest.New(), nil, c, time.Minute)
	dir.SetHashParams(cryptopackage.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	return NewService(newJWT(t), dir, blacklist.NewRepository(provider))
}

func signup(t *testing.T, s *Service, name string) *models.User {
	t.Helper()
	u, err := s.Signup(context.Background(), users.SignupInput{Username: name, Email: name + "@example.com", Password: "password"})
	require.NoError(t, err)
	return u
}

func TestNewJWTService_Validation(t *testing.T) {
	_, err := NewJWTService(&config.Config{JWTSecret: "short", JWTAlgorithm: "HS256"})
	assert.Error(t, err)

	_, err = NewJWTService(&config.Config{JWTSecret: testSecret, JWTAlgorithm: "RS256"})
	assert.Error(t, err)

	s, err := NewJWTService(&config.Config{JWTSecret: testSecret, JWTAlgorithm: "HS512"})
	require.NoError(t, err)
	assert.Equal(t, "HS512", s.GetConfig().Method.Alg())
}

func TestScopesAreNotInterchangeable(t *testing.T) {
	s := newJWT(t)

	pair, err := s.GenerateTokens("alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	email, err := s.DecodeAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	email, err = s.DecodeRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	_, err = s.DecodeAccessToken(pair.RefreshToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Contains(t, errs.Message(err), "scope")

	_, err = s.DecodeRefreshToken(pair.AccessToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestDecode_RejectsBadTokens(t *testing.T) {
	s := newJWT(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice@example.com", "scope": ScopeAccess, "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice@example.com", "scope": ScopeAccess, "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	for _, token := range []string{expired, forged, "garbage"} {
		_, err := s.DecodeAccessToken(token)
		assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	}
}

func TestLoginAndCurrentUser(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	alice := signup(t, s, "alice")

	_, err := s.Login(ctx, "alice@example.com", "wrong-password")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	_, err = s.Login(ctx, "nobody@example.com", "password")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))

	pair, err := s.Login(ctx, "alice@example.com", "password")
	require.NoError(t, err)

	u, err := s.CurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	_, err = s.CurrentUser(ctx, pair.RefreshToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestCurrentUser_BannedIsForbidden(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	signup(t, s, "alice")
	signup(t, s, "bobby")

	pair, err := s.Login(ctx, "bobby@example.com", "password")
	require.NoError(t, err)
	_, err = s.CurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)

	ok, err := s.users.Ban(ctx, "bobby")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.CurrentUser(ctx, pair.AccessToken)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	_, err = s.Login(ctx, "bobby@example.com", "password")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestLogout_BlacklistsToken(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	alice := signup(t, s, "alice")

	pair, err := s.Login(ctx, "alice@example.com", "password")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, alice, pair.AccessToken))
	require.NoError(t, s.Blacklist(ctx, alice.ID, pair.AccessToken))

	_, err = s.CurrentUser(ctx, pair.AccessToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))

	_, err = s.Refresh(ctx, pair.RefreshToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	signup(t, s, "alice")

	first, err := s.Login(ctx, "alice@example.com", "password")
	require.NoError(t, err)

	second, err := s.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// 重放旧令牌会清除已保存的令牌
	_, err = s.Refresh(ctx, first.RefreshToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))

	_, err = s.Refresh(ctx, second.RefreshToken)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}
