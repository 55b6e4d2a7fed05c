package users

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anoixa/photogram/cache/ristretto"
	"github.com/anoixa/photogram/database/dbtest"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/database/repo/accounts"
	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/media/mediatest"
	cryptopackage "github.com/anoixa/photogram/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheapParams = cryptopackage.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type stubAvatars struct {
	url string
	err error
}

func (s stubAvatars) Lookup(context.Context, string) (string, error) { return s.url, s.err }

func newDirectory(t *testing.T, avatars AvatarResolver) (*Directory, *mediatest.Store) {
	t.Helper()
	provider := dbtest.NewProvider(t)
	store := mediatest.New()
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	d := NewDirectory(accounts.NewRepository(provider), store, avatars, c, time.Minute)
	d.SetHashParams(cheapParams)
	return d, store
}

func TestCreate_FirstUserIsAdmin(t *testing.T) {
	d, _ := newDirectory(t, stubAvatars{url: "https://gravatar/a"})
	ctx := context.Background()

	a, err := d.Create(ctx, SignupInput{Username: "alice", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, a.Role)
	assert.Equal(t, "alice@example.com", a.Email)
	require.NotNil(t, a.Avatar)
	assert.Equal(t, "https://gravatar/a", *a.Avatar)
	assert.True(t, d.VerifyPassword("secret1", a.Password))
	assert.False(t, d.VerifyPassword("wrong", a.Password))

	b, err := d.Create(ctx, SignupInput{Username: "bob", Email: "bob@example.com", Password: "secret2"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, b.Role)
}

func TestCreate_AvatarFailureIsIgnored(t *testing.T) {
	d, _ := newDirectory(t, stubAvatars{err: errors.New("timeout")})

	u, err := d.Create(context.Background(), SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Nil(t, u.Avatar)
}

func TestCreate_Validation(t *testing.T) {
	d, _ := newDirectory(t, nil)
	ctx := context.Background()

	cases := []SignupInput{
		{Username: "al", Email: "alice@example.com", Password: "secret1"},
		{Username: "alice", Email: "not-an-email", Password: "secret1"},
		{Username: "alice", Email: "alice@example.com", Password: "12345"},
	}
	for _, in := range cases {
		_, err := d.Create(ctx, in)
		assert.True(t, errors.Is(err, errs.ErrValidation), "input %+v", in)
	}

	_, err := d.Create(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = d.Create(ctx, SignupInput{Username: "alice2", Email: "alice@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

func TestLookups(t *testing.T) {
	d, _ := newDirectory(t, nil)
	ctx := context.Background()
	_, err := d.Create(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := d.ByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)

	missing, err := d.ByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = d.ByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResolve_CacheInvalidatedOnBan(t *testing.T) {
	d, _ := newDirectory(t, nil)
	ctx := context.Background()
	_, err := d.Create(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := d.Resolve(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, u.IsBanned)
	assert.Empty(t, u.Password)

	ok, err := d.Ban(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	u, err = d.Resolve(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsBanned)

	ok, err = d.Ban(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	d, _ := newDirectory(t, nil)
	ctx := context.Background()
	_, err := d.Create(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	name, email, password := "alicia", "alicia@example.com", "newsecret"
	u, err := d.UpdateProfile(ctx, "alice@example.com", ProfileUpdate{Username: &name, Email: &email, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.FullName)
	assert.Equal(t, "alicia@example.com", u.Email)
	assert.True(t, d.VerifyPassword("newsecret", u.Password))

	_, err = d.UpdateProfile(ctx, "alice@example.com", ProfileUpdate{Username: &name})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestUploadAvatar_RecordsPicture(t *testing.T) {
	d, store := newDirectory(t, nil)
	ctx := context.Background()
	u, err := d.Create(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	updated, err := d.UploadAvatar(ctx, u, []byte("png"))
	require.NoError(t, err)
	require.NotNil(t, updated.Avatar)
	assert.Equal(t, 1, updated.PictureCount)
	assert.Len(t, store.IDs(), 1)

	count, err := d.PictureCount(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	store.FailUpload = true
	_, err = d.UploadAvatar(ctx, u, []byte("png"))
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))
}

func TestGravatarLookup(t *testing.T) {
	sum := md5.Sum([]byte("known@example.com"))
	knownPath := "/avatar/" + hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "404", r.URL.Query().Get("d"))
		if r.URL.Path == knownPath {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGravatar(time.Second)
	g.baseURL = srv.URL + "/avatar/"

	url, err := g.Lookup(context.Background(), " Known@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+knownPath, url)

	url, err = g.Lookup(context.Background(), "unknown@example.com")
	require.NoError(t, err)
	assert.Empty(t, url)

	srv.Close()
	_, err = g.Lookup(context.Background(), "unknown@example.com")
	assert.Error(t, err)
}
