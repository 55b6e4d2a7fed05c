package pictures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anoixa/photogram/cache/ristretto"
	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/dbtest"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/accounts"
	commentsrepo "github.com/anoixa/photogram/database/repo/comments"
	picturesrepo "github.com/anoixa/photogram/database/repo/pictures"
	transformsrepo "github.com/anoixa/photogram/database/repo/transforms"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/media/mediatest"
	"github.com/anoixa/photogram/internal/users"
	cryptopackage "github.com/anoixa/photogram/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	provider database.Provider
	store    *mediatest.Store
	dir      *users.Directory
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := dbtest.NewProvider(t)
	store := mediatest.New()
	cacheProvider, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheProvider.Close() })

	dir := users.NewDirectory(accounts.NewRepository(provider), store, nil, cacheProvider, time.Minute)
	dir.SetHashParams(cryptopackage.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	return &fixture{
		provider: provider,
		store:    store,
		dir:      dir,
		svc:      NewService(picturesrepo.NewRepository(provider), transformsrepo.NewRepository(provider), store, dir),
	}
}

func (f *fixture) signup(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.dir.Create(context.Background(), users.SignupInput{Username: name, Email: name + "@example.com", Password: "password"})
	require.NoError(t, err)
	return u
}

func TestNormalizeTags(t *testing.T) {
	tags, err := NormalizeTags([]string{" Cat", "cute ", "CAT", "", "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "cute"}, tags)

	_, err = NormalizeTags([]string{"a", "b", "c", "d", "e", "f"})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	// 重复项不计入上限
	tags, err = NormalizeTags([]string{"a", "b", "c", "d", "e", "A"})
	require.NoError(t, err)
	assert.Len(t, tags, 5)

	_, err = NormalizeTags([]string{"abcdefghijklmnopqrstuvwxyz"})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestUpload_TooManyTagsRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	_, err := f.svc.Upload(ctx, alice, UploadInput{
		Data: []byte("img"),
		Tags: []string{"a", "b", "c", "d", "e", "f"},
	})
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.Empty(t, f.store.IDs())

	var count int64
	require.NoError(t, f.provider.DB().Model(&models.Picture{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpload_StorageFailure(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	f.store.FailUpload = true

	_, err := f.svc.Upload(context.Background(), alice, UploadInput{Data: []byte("img")})
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))
}

func TestUpload_RequiresFile(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	_, err := f.svc.Upload(context.Background(), alice, UploadInput{})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestScenario_OwnershipAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.signup(t, "alice")
	b := f.signup(t, "bobby")
	assert.Equal(t, models.RoleAdmin, a.Role)
	assert.Equal(t, models.RoleUser, b.Role)

	p, err := f.svc.Upload(ctx, a, UploadInput{Data: []byte("img"), Tags: []string{"cat", " cute"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cat", "cute"}, p.TagNames())
	require.True(t, f.store.Has(p.PublicID))

	require.NoError(t, f.provider.DB().Create(&models.Comment{Text: "nice", UserID: b.ID, PictureID: p.ID}).Error)

	err = f.svc.Delete(ctx, p.ID, b)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
	assert.True(t, f.store.Has(p.PublicID))

	_, err = f.svc.Get(ctx, p.ID, b)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	require.NoError(t, f.svc.Delete(ctx, p.ID, a))
	assert.False(t, f.store.Has(p.PublicID))

	_, err = f.svc.Get(ctx, p.ID, a)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	comments, err := commentsrepo.NewRepository(f.provider).ListByPicture(ctx, p.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestDelete_RemoteFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	p, err := f.svc.Upload(ctx, alice, UploadInput{Data: []byte("img")})
	require.NoError(t, err)

	f.store.FailDeleteIDs[p.PublicID] = true
	err = f.svc.Delete(ctx, p.ID, alice)
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))

	kept, err := f.svc.Get(ctx, p.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, p.ID, kept.ID)
}

func TestDelete_RemovesDerivedObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	p, err := f.svc.Upload(ctx, alice, UploadInput{Data: []byte("img")})
	require.NoError(t, err)

	qr := "qr-1"
	tp := &models.TransformedPicture{OriginalPictureID: p.ID, URL: "u", PublicID: "t-1", QRPublicID: &qr, UserID: alice.ID}
	require.NoError(t, f.provider.DB().Create(tp).Error)

	f.store.FailDeleteIDs[qr] = true
	err = f.svc.Delete(ctx, p.ID, alice)
	assert.Error(t, err)
	assert.True(t, f.store.Has(p.PublicID))

	delete(f.store.FailDeleteIDs, qr)
	require.NoError(t, f.svc.Delete(ctx, p.ID, alice))
}

func TestUpdateDescriptionAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bobby")

	p, err := f.svc.Upload(ctx, alice, UploadInput{Data: []byte("img"), Tags: []string{"sun"}})
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, bob, UploadInput{Data: []byte("img"), Tags: []string{"sun"}})
	require.NoError(t, err)

	desc := "sunset"
	updated, err := f.svc.UpdateDescription(ctx, p.ID, &desc, alice)
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "sunset", *updated.Description)

	_, err = f.svc.UpdateDescription(ctx, p.ID, &desc, bob)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	_, err = f.svc.UpdateDescription(ctx, 999, &desc, alice)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	own, total, err := f.svc.List(ctx, bob, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, own, 1)

	byTag, total, err := f.svc.List(ctx, bob, "SUN", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, bob.ID, byTag[0].UserID)

	all, total, err := f.svc.List(ctx, alice, "sun", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

func TestList_TagPagesOverOwnPicturesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.signup(t, "admin")
	bob := f.signup(t, "bobby")
	alice := f.signup(t, "alice")
	require.False(t, alice.IsAdmin())

	_, err := f.svc.Upload(ctx, bob, UploadInput{Data: []byte("img"), Tags: []string{"sun"}})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Upload(ctx, alice, UploadInput{Data: []byte("img"), Tags: []string{"sun"}})
		require.NoError(t, err)
	}

	list, total, err := f.svc.List(ctx, bob, "sun", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].UserID)

	list, total, err = f.svc.List(ctx, alice, "sun", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 1)
	assert.Equal(t, alice.ID, list[0].UserID)

	_, total, err = f.svc.List(ctx, admin, "sun", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestUploadAndDelete_RefreshCachedPictureCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	resolved, err := f.dir.Resolve(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved.PictureCount)

	p, err := f.svc.Upload(ctx, alice, UploadInput{Data: []byte("img")})
	require.NoError(t, err)
	resolved, err = f.dir.Resolve(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.PictureCount)

	require.NoError(t, f.svc.Delete(ctx, p.ID, alice))
	resolved, err = f.dir.Resolve(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved.PictureCount)
}

func TestDelete_ClearsAvatarPointingAtPicture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	updated, err := f.dir.UploadAvatar(ctx, alice, []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, updated.Avatar)

	var avatar models.Picture
	require.NoError(t, f.provider.DB().Where("url = ?", *updated.Avatar).First(&avatar).Error)

	// 删除其他图片不影响头像
	other, err := f.svc.Upload(ctx, alice, UploadInput{Data: []byte("img")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, other.ID, alice))
	reloaded, err := f.dir.ByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Avatar)

	require.NoError(t, f.svc.Delete(ctx, avatar.ID, alice))
	reloaded, err = f.dir.ByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Avatar)

	resolved, err := f.dir.Resolve(ctx, alice.Email)
	require.NoError(t, err)
	assert.Nil(t, resolved.Avatar)
}
